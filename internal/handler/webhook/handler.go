package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/service/audience"
	"github.com/zhouzirui/millionaire/backend/pkg/utils"
)

// AudienceProcessor 处理一条发给某局游戏的观众短信
type AudienceProcessor interface {
	ProcessAudienceResponse(ctx context.Context, gameID, from, text string) (audience.Result, error)
}

// Handler 短信与语音回调的HTTP处理器
type Handler struct {
	audience   AudienceProcessor
	fromNumber string
}

// New 创建回调处理器
func New(processor AudienceProcessor, fromNumber string) *Handler {
	return &Handler{audience: processor, fromNumber: fromNumber}
}

// RegisterRoutes 注册短信与语音回调路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/inbound", h.handleInbound)
	r.HandleFunc("/inbound/{gameID}", h.handleInbound)
	r.HandleFunc("/status", h.handleStatus)
	r.HandleFunc("/status/{gameID}", h.handleStatus)

	r.HandleFunc("/voice/answer", h.handleVoiceAnswer)
	r.HandleFunc("/voice/event", h.handleVoiceEvent("event"))
	r.HandleFunc("/voice/fallback", h.handleVoiceEvent("fallback"))
}

// callback 新旧两种短信回调共用的字段
type callback struct {
	From   string `json:"from"`
	MSISDN string `json:"msisdn"`
	To     string `json:"to"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

func (c callback) sender() string {
	if c.From != "" {
		return c.From
	}
	return c.MSISDN
}

// readCallback 支持 JSON、表单或查询参数
func readCallback(r *http.Request) callback {
	var cb callback
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
			logger.Warn("unreadable callback body", "path", r.URL.Path, "error", err)
		}
		return cb
	}

	if err := r.ParseForm(); err != nil {
		logger.Warn("unreadable callback form", "path", r.URL.Path, "error", err)
		return cb
	}
	cb.From = r.Form.Get("from")
	cb.MSISDN = r.Form.Get("msisdn")
	cb.To = r.Form.Get("to")
	cb.Text = r.Form.Get("text")
	cb.Status = r.Form.Get("status")
	return cb
}

// handleInbound 总是返回成功，避免服务商重试；
// 处理失败只记录日志
func (h *Handler) handleInbound(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	cb := readCallback(r)
	logger.Debug("inbound sms", "game_id", gameID, "from", cb.sender())

	if gameID != "" && h.audience != nil {
		res, err := h.audience.ProcessAudienceResponse(r.Context(), gameID, cb.sender(), cb.Text)
		if err != nil {
			logger.Warn("inbound sms not processed", "game_id", gameID, "error", err)
		} else {
			logger.Info("audience response", "game_id", gameID, "verdict", string(res.Verdict))
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	cb := readCallback(r)
	logger.Debug("message status", "game_id", chi.URLParam(r, "gameID"), "to", cb.To, "status", cb.Status)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

type nccoEndpoint struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type nccoAction struct {
	Action   string         `json:"action"`
	Text     string         `json:"text,omitempty"`
	From     string         `json:"from,omitempty"`
	Endpoint []nccoEndpoint `json:"endpoint,omitempty"`
}

// handleVoiceAnswer 将浏览器发起的呼叫接通到目标号码
func (h *Handler) handleVoiceAnswer(w http.ResponseWriter, r *http.Request) {
	cb := readCallback(r)

	ncco := []nccoAction{{Action: "talk", Text: "No destination user - hanging up"}}
	if cb.To != "" {
		ncco = []nccoAction{{
			Action:   "connect",
			From:     h.fromNumber,
			Endpoint: []nccoEndpoint{{Type: "phone", Number: cb.To}},
		}}
	}

	logger.Debug("voice answer", "to", cb.To, "action", ncco[0].Action)
	utils.RespondJSON(w, http.StatusOK, ncco)
}

func (h *Handler) handleVoiceEvent(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb := readCallback(r)
		logger.Debug("voice "+kind, "to", cb.To, "status", cb.Status)
		w.WriteHeader(http.StatusOK)
	}
}
