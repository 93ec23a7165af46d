package audience

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

// Verdict 观众短信的判定结果。
type Verdict string

const (
	Accepted   Verdict = "accepted"
	Malformed  Verdict = "malformed"
	Invalid    Verdict = "invalid"
	Eliminated Verdict = "eliminated"
	Closed     Verdict = "closed"
)

// Result 一条观众短信的处理结果。
type Result struct {
	Verdict Verdict
	Letter  string
	Reply   string
}

// Evaluate 按当前题校验观众短信。
// 只有当前题未作答且已使用观众求助时才接受投票。
// 只有 Accepted 结果应写入日志。
func Evaluate(g *game.Game, text string) Result {
	q := g.CurrentQuestion()
	if q == nil || !q.Pending() || !g.LifeLines.TextTheAudience {
		return Result{
			Verdict: Closed,
			Reply:   "Sorry, there is no question open for voting right now.",
		}
	}

	allowed := q.AllowedLetters()
	only := fmt.Sprintf("Please respond with only %s.", strings.Join(allowed, ", "))

	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) != 1 {
		return Result{
			Verdict: Malformed,
			Reply:   "I'm sorry, I didn't understand your message. " + only,
		}
	}

	r, _ := utf8.DecodeRuneInString(trimmed)
	letter := string(unicode.ToUpper(r))

	if contains(q.RemovedLetters(), letter) {
		return Result{
			Verdict: Eliminated,
			Letter:  letter,
			Reply:   fmt.Sprintf("I'm sorry but Choice '%s' has been eliminated. %s", letter, only),
		}
	}

	if !contains(allowed, letter) {
		return Result{
			Verdict: Invalid,
			Letter:  letter,
			Reply:   fmt.Sprintf("I'm sorry but '%s' is not a valid choice. %s", letter, only),
		}
	}

	name := ""
	if g.Player != nil {
		name = g.Player.Name
	}
	return Result{
		Verdict: Accepted,
		Letter:  letter,
		Reply:   strings.TrimSpace("Thanks for helping " + name),
	}
}

func contains(letters []string, letter string) bool {
	for _, l := range letters {
		if l == letter {
			return true
		}
	}
	return false
}
