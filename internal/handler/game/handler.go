package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/pkg/utils"
)

// Handler 游戏接口的HTTP处理器
type Handler struct {
	// 服务关闭时结束所有轮询连接
	shutdown     context.Context
	svc          *gameService.Service
	pollInterval time.Duration
	upgrader     websocket.Upgrader
}

// New 创建游戏处理器
func New(shutdown context.Context, svc *gameService.Service, pollInterval time.Duration) *Handler {
	if shutdown == nil {
		shutdown = context.Background()
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Handler{
		shutdown:     shutdown,
		svc:          svc,
		pollInterval: pollInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册游戏相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/points", h.handlePoints)
	r.Get("/games", h.handleList)
	r.Post("/games", h.handleCreate)
	r.Get("/games/{gameID}", h.handleGet)
	r.Put("/games/{gameID}", h.handleRPC)
	r.Get("/games/{gameID}/poll", h.handlePoll)
}

func (h *Handler) handlePoints(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, game.PointScale())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.List(r.Context())
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, games)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload gameService.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.svc.CreateGame(r.Context(), payload)
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, g)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Get(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		RespondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, g)
}

type rpcRequest struct {
	Method     string          `json:"method"`
	Parameters json.RawMessage `json:"parameters"`
	ID         json.RawMessage `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  *game.Game      `json:"result"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type answerParams struct {
	LetterChoice string `json:"letterChoice"`
}

type lifeLineParams struct {
	Which string `json:"which"`
}

var errUnknownMethod = errors.New("unknown method")

// handleRPC 执行一次状态机操作并返回更新后的游戏
func (h *Handler) handleRPC(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	logger.Debug("rpc call", "game_id", gameID, "method", req.Method)

	g, err := h.dispatch(r.Context(), gameID, req)
	if err != nil {
		logger.Info("rpc failed", "game_id", gameID, "method", req.Method, "error", err)
		RespondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Result: g, ID: req.ID})
}

func (h *Handler) dispatch(ctx context.Context, gameID string, req rpcRequest) (*game.Game, error) {
	switch req.Method {
	case "ask":
		return h.svc.Ask(ctx, gameID)
	case "pass":
		return h.svc.Pass(ctx, gameID)
	case "answer":
		var params answerParams
		if err := decodeParams(req.Parameters, &params); err != nil {
			return nil, err
		}
		return h.svc.Answer(ctx, gameID, params.LetterChoice)
	case "life_line":
		var params lifeLineParams
		if err := decodeParams(req.Parameters, &params); err != nil {
			return nil, err
		}
		return h.svc.LifeLine(ctx, gameID, params.Which)
	case "count_answers":
		return h.svc.CountAudienceAnswers(ctx, gameID)
	case "find_player":
		return h.svc.FindPlayer(ctx, gameID)
	case "call_player":
		return h.svc.CallPlayer(ctx, gameID)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownMethod, req.Method)
	}
}

func decodeParams(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: parameters: %v", gameService.ErrInvalidInput, err)
	}
	return nil
}

// RespondServiceError 将服务层错误转换为HTTP错误响应
func RespondServiceError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("unexpected service error", "error", err)
		utils.RespondError(w, status, "")
		return
	}
	utils.RespondError(w, status, err.Error())
}

// StatusFor 返回服务层错误对应的HTTP状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, gameService.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gameService.ErrIllegalState):
		return http.StatusConflict
	case errors.Is(err, gameService.ErrInvalidLifeline),
		errors.Is(err, gameService.ErrInvalidInput),
		errors.Is(err, errUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, gameService.ErrGenerationFormat),
		errors.Is(err, gameService.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, gameService.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
