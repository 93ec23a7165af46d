package audience

import "github.com/zhouzirui/millionaire/backend/internal/model/game"

// Tally 按字母统计某局游戏的不同发送者数量。
func Tally(entries []Entry, gameID string) map[string]int {
	senders := make(map[string]map[string]struct{})
	for _, e := range entries {
		if e.GameID != gameID {
			continue
		}
		if senders[e.Letter] == nil {
			senders[e.Letter] = make(map[string]struct{})
		}
		senders[e.Letter][e.From] = struct{}{}
	}

	counts := make(map[string]int, len(senders))
	for letter, from := range senders {
		counts[letter] = len(from)
	}
	return counts
}

// Apply 覆盖每个选项的观众票数，未出现的字母置 0。
func Apply(q *game.Question, counts map[string]int) {
	for i := range q.Choices {
		q.Choices[i].AudienceChoice = counts[q.Choices[i].Letter]
	}
}
