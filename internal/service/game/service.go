package game

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/metrics"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	"github.com/zhouzirui/millionaire/backend/internal/repository"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
)

// Generator 为对话记录生成下一条助手回复。
type Generator interface {
	Generate(ctx context.Context, transcript []game.Message) (string, error)
}

// Directory 列出报名参加的人。
type Directory interface {
	ListParticipants(ctx context.Context) ([]game.Person, error)
}

// Messenger 发送短信。
type Messenger interface {
	SendSMS(ctx context.Context, from, to, text string) error
}

// RouteConfigurer 将短信回调指向某局游戏。
type RouteConfigurer interface {
	SetInboundRoute(ctx context.Context, gameID string) error
	SetStatusRoute(ctx context.Context, gameID string) error
}

// NumberLookup 列出观众可以发短信的号码。
type NumberLookup interface {
	OwnedNumbers(ctx context.Context) ([]game.Number, error)
}

// TokenIssuer 为浏览器呼叫客户端签发会话令牌。
type TokenIssuer interface {
	IssueToken(subject string, paths []string) (string, error)
}

// ResponseLog 所有游戏共享的只追加观众投票日志。
type ResponseLog interface {
	Append(e audience.Entry) error
	Entries() ([]audience.Entry, error)
}

// Rand 去错与抽人所用的随机源。
// *math/rand/v2.Rand 满足该接口；服务内部会串行化调用，
// 所以所有游戏可以共用一个随机源。
type Rand interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

// Deps 可选的外部依赖，缺少依赖的操作
// 返回 ErrUnavailable。
type Deps struct {
	Generator  Generator
	Directory  Directory
	Messenger  Messenger
	Routes     RouteConfigurer
	Numbers    NumberLookup
	Tokens     TokenIssuer
	Responses  ResponseLog
	Rand       Rand
	FromNumber string
	Now        func() time.Time
}

// Service 游戏状态的唯一写入方。
type Service struct {
	repo  repository.Repository
	locks *repository.Locker

	generator  Generator
	directory  Directory
	messenger  Messenger
	routes     RouteConfigurer
	numbers    NumberLookup
	tokens     TokenIssuer
	responses  ResponseLog
	rand       Rand
	fromNumber string
	now        func() time.Time
}

// NewService 创建游戏服务。
func NewService(repo repository.Repository, deps Deps) *Service {
	r := deps.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:       repo,
		locks:      repository.NewLocker(),
		generator:  deps.Generator,
		directory:  deps.Directory,
		messenger:  deps.Messenger,
		routes:     deps.Routes,
		numbers:    deps.Numbers,
		tokens:     deps.Tokens,
		responses:  deps.Responses,
		rand:       &lockedRand{r: r},
		fromNumber: deps.FromNumber,
		now:        now,
	}
}

// lockedRand 为不同游戏共用的随机源加锁。
type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// CreateParams 创建游戏的参数。
type CreateParams struct {
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Categories []string `json:"categories"`
}

// CreateGame 创建新游戏，并写入出题系统提示词。
func (s *Service) CreateGame(ctx context.Context, params CreateParams) (*game.Game, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	categories := make([]string, 0, len(params.Categories))
	for _, c := range params.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, c)
		}
	}

	id, err := s.uniqueID(ctx)
	if err != nil {
		return nil, err
	}

	g := &game.Game{
		ID:           id,
		Title:        title,
		URL:          strings.TrimSpace(params.URL),
		Categories:   categories,
		Participants: []game.Participant{},
		Messages:     []game.Message{{Role: game.RoleSystem, Content: systemPrompt(categories)}},
		Questions:    []game.Question{},
		Numbers:      []game.Number{},
		CreatedAt:    s.now().UTC(),
	}

	if s.numbers != nil {
		numbers, err := s.numbers.OwnedNumbers(ctx)
		if err != nil {
			logger.Warn("owned numbers unavailable", "game_id", id, "error", err)
		} else {
			g.Numbers = numbers
		}
	}

	if err := s.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", id, err)
	}

	logger.Info("game created", "game_id", id, "title", title)
	return g, nil
}

// Get 返回一局游戏。
func (s *Service) Get(ctx context.Context, id string) (*game.Game, error) {
	return s.repo.Get(ctx, id)
}

// List 按创建时间返回全部游戏。
func (s *Service) List(ctx context.Context) ([]*game.Game, error) {
	return s.repo.List(ctx)
}

// Ask 生成下一道题，新题即为当前题。
func (s *Service) Ask(ctx context.Context, id string) (*game.Game, error) {
	return s.update(ctx, id, "ask", func(g *game.Game) error {
		_, err := s.ask(ctx, g)
		return err
	})
}

// Pass 放弃当前题并换一道新题。
func (s *Service) Pass(ctx context.Context, id string) (*game.Game, error) {
	return s.update(ctx, id, "pass", func(g *game.Game) error {
		q := g.CurrentQuestion()
		if q == nil {
			return fmt.Errorf("%w: no question to pass", ErrIllegalState)
		}
		if !q.Pending() {
			return fmt.Errorf("%w: question %s is already settled", ErrIllegalState, q.ID)
		}

		q.Passed = true
		if _, err := s.ask(ctx, g); err != nil {
			return err
		}
		g.Score = Score(g)
		return nil
	})
}

// Answer 用选手选择的字母作答当前题。
func (s *Service) Answer(ctx context.Context, id, letterChoice string) (*game.Game, error) {
	letter := normalizeLetter(letterChoice)
	if letter == "" {
		return nil, fmt.Errorf("%w: letterChoice is required", ErrInvalidInput)
	}

	return s.update(ctx, id, "answer", func(g *game.Game) error {
		q := g.CurrentQuestion()
		if q == nil {
			return fmt.Errorf("%w: no question to answer", ErrIllegalState)
		}
		if !q.Pending() {
			return fmt.Errorf("%w: question %s is already settled", ErrIllegalState, q.ID)
		}

		choice := findChoice(q, letter)
		if choice == nil {
			return fmt.Errorf("%w: %q is not a choice", ErrInvalidInput, letter)
		}
		if choice.Removed {
			return fmt.Errorf("%w: choice %s has been eliminated", ErrIllegalState, letter)
		}

		q.Answered = true
		q.AnsweredCorrectly = letter == q.Correct
		g.Score = Score(g)
		if q.AnsweredCorrectly && atTopTier(g) {
			g.Over = true
		}

		result := "wrong"
		if q.AnsweredCorrectly {
			result = "correct"
		}
		metrics.Answers.WithLabelValues(result).Inc()
		logger.Info("question answered", "game_id", g.ID, "question_id", q.ID, "result", result, "score", g.Score)
		return nil
	})
}

// LifeLine 对当前题使用一次求助。
func (s *Service) LifeLine(ctx context.Context, id, which string) (*game.Game, error) {
	l, err := ParseLifeLine(which)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, id, "life_line", func(g *game.Game) error {
		if l.used(g.LifeLines) {
			return fmt.Errorf("%w: %s already used", ErrIllegalState, l)
		}
		q := g.CurrentQuestion()
		if q == nil || !q.Pending() {
			return fmt.Errorf("%w: lifelines need an open question", ErrIllegalState)
		}

		if err := s.runLifeLine(ctx, g, l); err != nil {
			return err
		}
		l.markUsed(&g.LifeLines)

		metrics.LifeLinesUsed.WithLabelValues(string(l)).Inc()
		logger.Info("lifeline used", "game_id", g.ID, "lifeline", string(l))
		return nil
	})
}

// FindPlayer 从报名者中抽取选手，
// 其余人成为参与者。
func (s *Service) FindPlayer(ctx context.Context, id string) (*game.Game, error) {
	if s.directory == nil {
		return nil, fmt.Errorf("%w: no participant directory", ErrUnavailable)
	}

	return s.update(ctx, id, "find_player", func(g *game.Game) error {
		people, err := s.directory.ListParticipants(ctx)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}

		candidates := toParticipants(people, nil)
		if len(candidates) == 0 {
			return fmt.Errorf("%w: nobody has signed up", ErrIllegalState)
		}

		picked := candidates[s.rand.IntN(len(candidates))]
		g.Player = &game.Person{Name: picked.Name, Phone: picked.Phone}
		g.Participants = toParticipants(people, g.Player)

		logger.Info("player selected", "game_id", g.ID, "player", picked.Name)
		return nil
	})
}

// CallPlayer 签发新的会话令牌用于呼叫选手。
func (s *Service) CallPlayer(ctx context.Context, id string) (*game.Game, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("%w: no token issuer", ErrUnavailable)
	}

	return s.update(ctx, id, "call_player", func(g *game.Game) error {
		if g.Player == nil {
			return fmt.Errorf("%w: no player selected", ErrIllegalState)
		}
		token, err := s.tokens.IssueToken(sessionSubject, sessionACL)
		if err != nil {
			return fmt.Errorf("issue session token: %w", err)
		}
		g.JWT = token
		return nil
	})
}

// ProcessAudienceResponse 校验一条观众短信，有效投票写入日志并回复发送者。
// 回复失败只记录日志。
func (s *Service) ProcessAudienceResponse(ctx context.Context, id, from, text string) (audience.Result, error) {
	if s.responses == nil {
		return audience.Result{}, fmt.Errorf("%w: no response log", ErrUnavailable)
	}
	if from = strings.TrimSpace(from); from == "" {
		return audience.Result{}, fmt.Errorf("%w: sender is required", ErrInvalidInput)
	}

	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return audience.Result{}, err
	}

	res := audience.Evaluate(g, text)
	if res.Verdict == audience.Accepted {
		if err := s.responses.Append(audience.Entry{GameID: g.ID, From: from, Letter: res.Letter}); err != nil {
			return audience.Result{}, fmt.Errorf("record vote: %w", err)
		}
	}
	metrics.AudienceResponses.WithLabelValues(string(res.Verdict)).Inc()
	logger.Debug("audience response", "game_id", g.ID, "verdict", string(res.Verdict), "letter", res.Letter)

	s.reply(ctx, from, res.Reply)
	return res, nil
}

func (s *Service) reply(ctx context.Context, to, text string) {
	if s.messenger == nil || to == "" {
		return
	}
	if err := s.messenger.SendSMS(ctx, s.fromNumber, to, text); err != nil {
		metrics.SMSDeliveryFailures.Inc()
		logger.Warn("audience reply not delivered", "to", to, "error", err)
	}
}

// CountAudienceAnswers 根据投票日志
// 重新统计当前题的观众投票。
func (s *Service) CountAudienceAnswers(ctx context.Context, id string) (*game.Game, error) {
	if s.responses == nil {
		return nil, fmt.Errorf("%w: no response log", ErrUnavailable)
	}

	return s.update(ctx, id, "count_answers", func(g *game.Game) error {
		q := g.CurrentQuestion()
		if q == nil {
			return fmt.Errorf("%w: no question to tally", ErrIllegalState)
		}

		entries, err := s.responses.Entries()
		if err != nil {
			return fmt.Errorf("read responses: %w", err)
		}
		audience.Apply(q, audience.Tally(entries, g.ID))
		return nil
	})
}

// update 在该游戏的锁内对副本执行 fn，
// 只有 fn 成功才保存。
func (s *Service) update(ctx context.Context, id, op string, fn func(g *game.Game) error) (*game.Game, error) {
	release := s.locks.Lock(id)
	defer release()

	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(g); err != nil {
		logger.Debug("operation rejected", "game_id", id, "op", op, "error", err)
		return nil, err
	}

	if err := s.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", id, err)
	}

	logger.Debug("operation applied", "game_id", id, "op", op)
	return g, nil
}

// ask 生成一道新题并追加到 g。
func (s *Service) ask(ctx context.Context, g *game.Game) (*game.Question, error) {
	if g.Over {
		return nil, fmt.Errorf("%w: game is over", ErrIllegalState)
	}
	if q := g.CurrentQuestion(); q != nil && q.Pending() {
		return nil, fmt.Errorf("%w: question %s is still open", ErrIllegalState, q.ID)
	}
	if len(g.Messages) == 0 {
		return nil, fmt.Errorf("%w: game has no transcript", ErrIllegalState)
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: no question generator", ErrUnavailable)
	}

	points := NextTierPoints(g)
	g.Messages = append(g.Messages, game.Message{Role: game.RoleUser, Content: askPrompt(points)})

	content, err := s.generator.Generate(ctx, g.Messages)
	if err != nil {
		metrics.QuestionsGenerated.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	q, err := ParseQuestion(content)
	if err != nil {
		metrics.QuestionsGenerated.WithLabelValues("malformed").Inc()
		logger.Warn("unusable question from generator", "game_id", g.ID, "error", err)
		return nil, err
	}

	g.Messages = append(g.Messages, game.Message{Role: game.RoleAssistant, Content: content})
	q.ID = uuid.NewString()
	g.Questions = append(g.Questions, q)

	metrics.QuestionsGenerated.WithLabelValues("ok").Inc()
	logger.Info("question asked", "game_id", g.ID, "question_id", q.ID, "points", points)
	return g.CurrentQuestion(), nil
}

func findChoice(q *game.Question, letter string) *game.Choice {
	for i := range q.Choices {
		if q.Choices[i].Letter == letter {
			return &q.Choices[i]
		}
	}
	return nil
}

const (
	gameIDLength = 8
	gameIDChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

func (s *Service) uniqueID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := newGameID()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check game id: %w", err)
		}
		if !exists {
			return id, nil
		}
	}
	return "", errors.New("could not allocate a unique game id")
}

func newGameID() (string, error) {
	id := make([]byte, gameIDLength)
	limit := big.NewInt(int64(len(gameIDChars)))
	for i := range id {
		n, err := crand.Int(crand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate game id: %w", err)
		}
		id[i] = gameIDChars[n.Int64()]
	}
	return string(id), nil
}
