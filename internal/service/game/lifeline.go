package game

import (
	"context"
	"fmt"
	"slices"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

// LifeLine 三种求助之一。
type LifeLine string

const (
	NarrowItDown    LifeLine = "narrow_it_down"
	PhoneADev       LifeLine = "phone_a_dev"
	TextTheAudience LifeLine = "text_the_audience"
)

// ParseLifeLine 将请求中的标识解析为 LifeLine。
func ParseLifeLine(tag string) (LifeLine, error) {
	switch l := LifeLine(tag); l {
	case NarrowItDown, PhoneADev, TextTheAudience:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLifeline, tag)
	}
}

func (l LifeLine) used(ll game.LifeLines) bool {
	switch l {
	case NarrowItDown:
		return ll.NarrowItDown
	case PhoneADev:
		return ll.PhoneADev
	default:
		return ll.TextTheAudience
	}
}

func (l LifeLine) markUsed(ll *game.LifeLines) {
	switch l {
	case NarrowItDown:
		ll.NarrowItDown = true
	case PhoneADev:
		ll.PhoneADev = true
	default:
		ll.TextTheAudience = true
	}
}

// 浏览器呼叫会话被授权的接口路径
var sessionACL = []string{
	"/*/users/**",
	"/*/conversations/**",
	"/*/sessions/**",
	"/*/devices/**",
	"/*/image/**",
	"/*/media/**",
	"/*/applications/**",
	"/*/push/**",
	"/*/knocking/**",
	"/*/legs/**",
}

const sessionSubject = "game_user"

func (s *Service) runLifeLine(ctx context.Context, g *game.Game, l LifeLine) error {
	switch l {
	case NarrowItDown:
		return s.narrowItDown(g)
	case PhoneADev:
		return s.phoneADev(ctx, g)
	case TextTheAudience:
		return s.textTheAudience(ctx, g)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLifeline, l)
	}
}

// narrowItDown 只保留一个错误选项。
func (s *Service) narrowItDown(g *game.Game) error {
	q := g.CurrentQuestion()

	var wrong []string
	for _, c := range q.Choices {
		if c.Letter != q.Correct && !c.Removed {
			wrong = append(wrong, c.Letter)
		}
	}
	if len(wrong) < 2 {
		return fmt.Errorf("%w: nothing left to narrow", ErrIllegalState)
	}

	s.rand.Shuffle(len(wrong), func(i, j int) { wrong[i], wrong[j] = wrong[j], wrong[i] })
	wrong = wrong[:len(wrong)-1]

	for i := range q.Choices {
		if slices.Contains(wrong, q.Choices[i].Letter) {
			q.Choices[i].Removed = true
		}
	}
	return nil
}

// phoneADev 随机选出一位非选手的报名者，
// 并签发呼叫所用的会话令牌。
func (s *Service) phoneADev(ctx context.Context, g *game.Game) error {
	if s.directory == nil || s.tokens == nil {
		return fmt.Errorf("%w: phone a dev needs a directory and a token issuer", ErrUnavailable)
	}

	people, err := s.directory.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}

	participants := toParticipants(people, g.Player)
	if len(participants) == 0 {
		return fmt.Errorf("%w: no one available to phone", ErrIllegalState)
	}

	token, err := s.tokens.IssueToken(sessionSubject, sessionACL)
	if err != nil {
		return fmt.Errorf("issue session token: %w", err)
	}

	dad := participants[s.rand.IntN(len(participants))]
	g.Participants = participants
	g.Dad = &dad
	g.JWT = token

	logger.Info("dev selected", "game_id", g.ID, "dev", dad.Name)
	return nil
}

// textTheAudience 将短信回调指向本局游戏，
// 并刷新观众可发送短信的号码。
func (s *Service) textTheAudience(ctx context.Context, g *game.Game) error {
	if s.routes == nil || s.numbers == nil {
		return fmt.Errorf("%w: text the audience needs messaging routes", ErrUnavailable)
	}

	if err := s.routes.SetInboundRoute(ctx, g.ID); err != nil {
		return fmt.Errorf("set inbound route: %w", err)
	}
	if err := s.routes.SetStatusRoute(ctx, g.ID); err != nil {
		return fmt.Errorf("set status route: %w", err)
	}

	numbers, err := s.numbers.OwnedNumbers(ctx)
	if err != nil {
		return fmt.Errorf("owned numbers: %w", err)
	}
	g.Numbers = numbers
	return nil
}

// toParticipants 去掉选手（按号码匹配）和空记录。
func toParticipants(people []game.Person, player *game.Person) []game.Participant {
	out := make([]game.Participant, 0, len(people))
	for _, p := range people {
		if p.Phone == "" {
			continue
		}
		if player != nil && p.Phone == player.Phone {
			continue
		}
		out = append(out, game.Participant{Name: p.Name, Phone: p.Phone, LastStatus: "unknown"})
	}
	return out
}
