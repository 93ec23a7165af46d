package vonage

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/millionaire/backend/internal/config"
	"github.com/zhouzirui/millionaire/backend/internal/logger"
)

// ErrDelivery 短信提交到 Messages API 失败时的错误。
var ErrDelivery = errors.New("sms delivery failed")

// Client 调用 Vonage 的 Messages、Application、Numbers 与 Number Insight 接口。
type Client struct {
	apiURL        string
	restURL       string
	apiKey        string
	apiSecret     string
	applicationID string
	key           *rsa.PrivateKey
	httpClient    *http.Client
	now           func() time.Time
}

// NewClient 加载应用私钥并创建 HTTP 客户端。
func NewClient(cfg config.VonageConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("vonage credentials missing")
	}

	key, err := loadPrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		apiURL:        strings.TrimRight(cfg.APIURL, "/"),
		restURL:       strings.TrimRight(cfg.RESTURL, "/"),
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		applicationID: cfg.ApplicationID,
		key:           key,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		now:           time.Now,
	}, nil
}

// loadPrivateKey 支持 PEM 文件路径或 PEM 内容。
func loadPrivateKey(value string) (*rsa.PrivateKey, error) {
	pem := []byte(value)
	if !strings.Contains(value, "-----BEGIN") {
		data, err := os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("read vonage private key: %w", err)
		}
		pem = data
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse vonage private key: %w", err)
	}
	return key, nil
}

type authFunc func(req *http.Request) error

func (c *Client) bearer(req *http.Request) error {
	token, err := c.IssueToken("", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) basic(req *http.Request) error {
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	return nil
}

// keyParams 通过查询参数为旧版 REST 接口鉴权。
func (c *Client) keyParams(req *http.Request) error {
	query := req.URL.Query()
	query.Set("api_key", c.apiKey)
	query.Set("api_secret", c.apiSecret)
	req.URL.RawQuery = query.Encode()
	return nil
}

// doJSON 以 JSON 发送 body（可为空），并将 2xx 响应解码到 out（可为空）。
func (c *Client) doJSON(ctx context.Context, method, url string, auth authFunc, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		if err := auth(req); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	logger.Debug("vonage call", "method", method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("vonage API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
