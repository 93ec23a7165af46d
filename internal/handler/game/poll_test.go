package game

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
)

func seedQuestion(t *testing.T, env *testEnv, id string) {
	t.Helper()
	g := &game.Game{
		ID: id,
		Questions: []game.Question{{
			ID:      "q1",
			Correct: "A",
			Choices: []game.Choice{{Letter: "A"}, {Letter: "B"}, {Letter: "C"}, {Letter: "D"}},
		}},
	}
	if err := env.repo.Save(context.Background(), g); err != nil {
		t.Fatalf("Save err: %v", err)
	}
}

func TestPollStreamsTallyAndRecountsOnClose(t *testing.T) {
	env := setupRouter(t)
	seedQuestion(t, env, "poll0001")

	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/games/poll0001/poll"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}

	var first tallyMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON err: %v", err)
	}
	if first.Type != "tally" || first.QuestionID != "q1" || len(first.Choices) != 4 {
		t.Fatalf("unexpected first message: %+v", first)
	}

	if err := env.log.Append(audience.Entry{GameID: "poll0001", From: "447700900001", Letter: "C"}); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var msg tallyMessage
		conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("vote never showed up: %v", err)
		}
		if msg.Choices[2].AudienceChoice == 1 {
			break
		}
	}

	if err := env.log.Append(audience.Entry{GameID: "poll0001", From: "447700900002", Letter: "C"}); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	conn.Close()

	// 关闭时的最后一次统计必须包含最后到达的投票
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g, err := env.repo.Get(context.Background(), "poll0001")
		if err != nil {
			t.Fatalf("Get err: %v", err)
		}
		if g.CurrentQuestion().Choices[2].AudienceChoice == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("final tally was not persisted")
}

func TestPollRejectsGameWithoutQuestion(t *testing.T) {
	env := setupRouter(t)
	g := env.createGame(t)

	resp := env.do(t, http.MethodGet, "/games/"+g.ID+"/poll", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	resp = env.do(t, http.MethodGet, "/games/missing1/poll", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestPollEventStream(t *testing.T) {
	env := setupRouter(t)
	seedQuestion(t, env, "poll0002")

	server := httptest.NewServer(env.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/games/poll0002/poll", nil)
	if err != nil {
		t.Fatalf("NewRequest err: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do err: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}

	scanner := bufio.NewScanner(resp.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			event = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			var msg tallyMessage
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg); err != nil {
				t.Fatalf("Unmarshal err: %v", err)
			}
			if event != "tally" || msg.GameID != "poll0002" || msg.QuestionID != "q1" {
				t.Fatalf("unexpected event %q %+v", event, msg)
			}
			break
		}
	}

	if err := env.log.Append(audience.Entry{GameID: "poll0002", From: "447700900001", Letter: "D"}); err != nil {
		t.Fatalf("Append err: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g, err := env.repo.Get(context.Background(), "poll0002")
		if err != nil {
			t.Fatalf("Get err: %v", err)
		}
		if g.CurrentQuestion().Choices[3].AudienceChoice == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("final tally was not persisted")
}

func TestPollClosesOnServerShutdown(t *testing.T) {
	env := setupRouter(t)
	seedQuestion(t, env, "poll0003")

	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/games/poll0003/poll"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer conn.Close()

	var first tallyMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON err: %v", err)
	}

	env.shutdown()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg tallyMessage
		err := conn.ReadJSON(&msg)
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("poll stream still open after shutdown")
		}
		break
	}
}

func TestPollEventStreamEndsOnServerShutdown(t *testing.T) {
	env := setupRouter(t)
	seedQuestion(t, env, "poll0004")

	server := httptest.NewServer(env.router)
	defer server.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(server.URL + "/games/poll0004/poll")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	if _, err := reader.ReadString('\n'); err != nil {
		t.Fatalf("no event before shutdown: %v", err)
	}

	env.shutdown()

	// 处理函数返回后响应体正常结束，客户端超时则说明连接未关闭
	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("event stream did not end after shutdown: %v", err)
	}
}
