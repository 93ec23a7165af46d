package utils

import (
	"encoding/json"
	"net/http"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
)

// Problem 所有接口统一的错误响应体
type Problem struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondJSON(w, status, Problem{
		Status: status,
		Title:  http.StatusText(status),
		Detail: detail,
	})
}
