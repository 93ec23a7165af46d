package game_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	"github.com/zhouzirui/millionaire/backend/internal/repository"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
	gamesvc "github.com/zhouzirui/millionaire/backend/internal/service/game"
)

func questionJSON(text, correct string) string {
	return fmt.Sprintf(`{"question":%q,"choices":[{"letter":"a","text":"One"},{"letter":"b","text":"Two"},{"letter":"c","text":"Three"},{"letter":"d","text":"Four"}],"correct":%q}`, text, correct)
}

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	err     error
	seen    [][]game.Message
}

func (f *fakeGenerator) Generate(_ context.Context, transcript []game.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, append([]game.Message(nil), transcript...))
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return questionJSON(fmt.Sprintf("Question %d", len(f.seen)), "A"), nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeGenerator) lastTranscript() []game.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seen) == 0 {
		return nil
	}
	return f.seen[len(f.seen)-1]
}

type fakeDirectory struct {
	people []game.Person
	err    error
}

func (f *fakeDirectory) ListParticipants(context.Context) ([]game.Person, error) {
	return f.people, f.err
}

type sentSMS struct {
	from, to, text string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentSMS
	err  error
}

func (f *fakeMessenger) SendSMS(_ context.Context, from, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentSMS{from: from, to: to, text: text})
	return f.err
}

func (f *fakeMessenger) last() sentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentSMS{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeRoutes struct {
	inbound, status []string
	err             error
}

func (f *fakeRoutes) SetInboundRoute(_ context.Context, gameID string) error {
	if f.err != nil {
		return f.err
	}
	f.inbound = append(f.inbound, gameID)
	return nil
}

func (f *fakeRoutes) SetStatusRoute(_ context.Context, gameID string) error {
	f.status = append(f.status, gameID)
	return nil
}

type fakeNumbers struct {
	numbers []game.Number
	err     error
}

func (f *fakeNumbers) OwnedNumbers(context.Context) ([]game.Number, error) {
	return f.numbers, f.err
}

type fakeTokens struct {
	subject string
	paths   []string
	issued  int
}

func (f *fakeTokens) IssueToken(subject string, paths []string) (string, error) {
	f.subject = subject
	f.paths = paths
	f.issued++
	return fmt.Sprintf("token-%d", f.issued), nil
}

type fixture struct {
	svc     *gamesvc.Service
	repo    *repository.FileRepository
	gen     *fakeGenerator
	dir     *fakeDirectory
	sms     *fakeMessenger
	routes  *fakeRoutes
	numbers *fakeNumbers
	tokens  *fakeTokens
	log     *audience.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	repo, err := repository.NewFileRepository(filepath.Join(dir, "games.json"))
	if err != nil {
		t.Fatalf("NewFileRepository err: %v", err)
	}
	log, err := audience.OpenLog(filepath.Join(dir, "participants.txt"))
	if err != nil {
		t.Fatalf("OpenLog err: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	f := &fixture{
		repo: repo,
		gen:  &fakeGenerator{},
		dir: &fakeDirectory{people: []game.Person{
			{Name: "Ada", Phone: "447700900001"},
			{Name: "Grace", Phone: "447700900002"},
			{Name: "Linus", Phone: "447700900003"},
		}},
		sms:     &fakeMessenger{},
		routes:  &fakeRoutes{},
		numbers: &fakeNumbers{numbers: []game.Number{{Country: "GB", CountryName: "United Kingdom", MSISDN: "447700900000", Number: "+44 07700 900000"}}},
		tokens:  &fakeTokens{},
		log:     log,
	}

	f.svc = gamesvc.NewService(repo, gamesvc.Deps{
		Generator:  f.gen,
		Directory:  f.dir,
		Messenger:  f.sms,
		Routes:     f.routes,
		Numbers:    f.numbers,
		Tokens:     f.tokens,
		Responses:  log,
		Rand:       rand.New(rand.NewPCG(1, 2)),
		FromNumber: "447700900000",
	})
	return f
}

func (f *fixture) create(t *testing.T) *game.Game {
	t.Helper()
	g, err := f.svc.CreateGame(context.Background(), gamesvc.CreateParams{Title: "Friday quiz", Categories: []string{"space", "go"}})
	if err != nil {
		t.Fatalf("CreateGame err: %v", err)
	}
	return g
}

// seed 绕过状态机直接保存 g。
func (f *fixture) seed(t *testing.T, g *game.Game) {
	t.Helper()
	if err := f.repo.Save(context.Background(), g); err != nil {
		t.Fatalf("seed save err: %v", err)
	}
}

func (f *fixture) stored(t *testing.T, id string) *game.Game {
	t.Helper()
	g, err := f.repo.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("repo Get err: %v", err)
	}
	return g
}

func openQuestion(id, correct string) game.Question {
	return game.Question{
		ID:       id,
		Question: "Pick one",
		Correct:  correct,
		Choices:  []game.Choice{{Letter: "A", Text: "One"}, {Letter: "B", Text: "Two"}, {Letter: "C", Text: "Three"}, {Letter: "D", Text: "Four"}},
	}
}

var errBoom = errors.New("boom")
