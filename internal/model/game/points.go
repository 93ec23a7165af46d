package game

var pointScale = [...]int{500, 1000, 2000, 5000, 10000, 50000, 100000, 250000, 500000, 1000000}

// PointScale 按升序返回奖金档位。
func PointScale() []int {
	return append([]int(nil), pointScale[:]...)
}

// TierCount 奖金档位数量。
func TierCount() int {
	return len(pointScale)
}

// PointsAt 返回指定档位的奖金，越界时返回 0。
func PointsAt(index int) int {
	if index < 0 || index >= len(pointScale) {
		return 0
	}
	return pointScale[index]
}
