package game

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/pkg/utils"
)

const writeWait = 10 * time.Second

type tallyMessage struct {
	Type       string        `json:"type"`
	GameID     string        `json:"gameId"`
	QuestionID string        `json:"questionId"`
	Choices    []game.Choice `json:"choices"`
}

func newTally(g *game.Game) (tallyMessage, bool) {
	q := g.CurrentQuestion()
	if q == nil {
		return tallyMessage{}, false
	}
	return tallyMessage{
		Type:       "tally",
		GameID:     g.ID,
		QuestionID: q.ID,
		Choices:    q.Choices,
	}, true
}

// handlePoll 在主持人打开投票面板期间推送观众投票统计，
// 支持 websocket，普通 GET 请求则使用 SSE。
// 连接关闭时再统计一次。
func (h *Handler) handlePoll(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	g, err := h.svc.Get(r.Context(), gameID)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	if g.CurrentQuestion() == nil {
		RespondServiceError(w, fmt.Errorf("%w: no question to poll", gameService.ErrIllegalState))
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		h.pollWebSocket(w, r, gameID)
		return
	}
	h.pollEvents(w, r, gameID)
}

func (h *Handler) pollWebSocket(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("poll upgrade failed", "game_id", gameID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := context.AfterFunc(h.shutdown, cancel)
	defer stop()

	// 客户端不会发送有效数据，读取出错即表示已断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.streamTally(ctx, gameID, func(msg tallyMessage) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	})
}

func (h *Handler) pollEvents(w http.ResponseWriter, r *http.Request, gameID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(h.shutdown, cancel)
	defer stop()

	h.streamTally(ctx, gameID, func(msg tallyMessage) error {
		return utils.SendSSEEvent(w, flusher, msg.Type, msg)
	})
}

// streamTally 每个轮询间隔重新统计并推送结果，直到 ctx 结束。
// ctx 结束后不再推送，最后一次统计只做保存。
func (h *Handler) streamTally(ctx context.Context, gameID string, send func(tallyMessage) error) {
	logger.Info("poll opened", "game_id", gameID)

	recount := func(c context.Context) error {
		g, err := h.svc.CountAudienceAnswers(c, gameID)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if msg, ok := newTally(g); ok {
			return send(msg)
		}
		return nil
	}

	if err := recount(ctx); err != nil {
		logger.Warn("initial recount failed", "game_id", gameID, "error", err)
	}

	if err := audience.Poll(ctx, h.pollInterval, recount); err != nil {
		logger.Warn("final recount failed", "game_id", gameID, "error", err)
		return
	}
	logger.Info("poll closed", "game_id", gameID)
}
