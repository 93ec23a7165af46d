package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gameHandler "github.com/zhouzirui/millionaire/backend/internal/handler/game"
	"github.com/zhouzirui/millionaire/backend/internal/handler/webhook"
	middlewarePkg "github.com/zhouzirui/millionaire/backend/internal/middleware"
	gameService "github.com/zhouzirui/millionaire/backend/internal/service/game"
	"github.com/zhouzirui/millionaire/backend/pkg/utils"
)

// NewRouter 注册全部HTTP路由，shutdown 结束时
// 关闭所有轮询连接。
func NewRouter(shutdown context.Context, svc *gameService.Service, pollInterval time.Duration, fromNumber string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "")
	})

	r.Get("/_/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// 游戏接口
	gameHandler.New(shutdown, svc, pollInterval).RegisterRoutes(r)

	// 短信与语音回调
	webhook.New(svc, fromNumber).RegisterRoutes(r)

	return r
}
