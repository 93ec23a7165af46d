package game

import "github.com/zhouzirui/millionaire/backend/internal/model/game"

// CurrentPointIndex 统计答对的题数，跳过的题不计。
// 一题未答对时返回 -1。
func CurrentPointIndex(g *game.Game) int {
	index := -1
	for _, q := range g.Questions {
		if q.Passed {
			continue
		}
		if q.AnsweredCorrectly {
			index++
		}
	}
	return index
}

// Score 当前档位的奖金，没有时为 0。
func Score(g *game.Game) int {
	return game.PointsAt(CurrentPointIndex(g))
}

// NextTierPoints 下一题的奖金。
func NextTierPoints(g *game.Game) int {
	if points := game.PointsAt(CurrentPointIndex(g) + 1); points > 0 {
		return points
	}
	return game.PointsAt(0)
}

func atTopTier(g *game.Game) bool {
	return CurrentPointIndex(g) >= game.TierCount()-1
}
