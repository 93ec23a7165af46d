package vonage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
)

// SetInboundRoute 将短信接收回调指向 /inbound/{gameID}。
func (c *Client) SetInboundRoute(ctx context.Context, gameID string) error {
	return c.setWebhookPath(ctx, "inbound_url", "/inbound/"+url.PathEscape(gameID))
}

// SetStatusRoute 将短信状态回调指向 /status/{gameID}。
func (c *Client) SetStatusRoute(ctx context.Context, gameID string) error {
	return c.setWebhookPath(ctx, "status_url", "/status/"+url.PathEscape(gameID))
}

// setWebhookPath 只改写回调地址的路径，保留主机部分。
// 应用配置以无类型结构读写，
// 保证其他设置不受影响。
func (c *Client) setWebhookPath(ctx context.Context, webhook, path string) error {
	appURL := c.apiURL + "/v2/applications/" + url.PathEscape(c.applicationID)

	var app map[string]any
	if err := c.doJSON(ctx, http.MethodGet, appURL, c.basic, nil, &app); err != nil {
		return fmt.Errorf("get application: %w", err)
	}

	hook, err := lookup(app, "capabilities", "messages", "webhooks", webhook)
	if err != nil {
		return err
	}

	address, _ := hook["address"].(string)
	parsed, err := url.Parse(address)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("application %s webhook has no usable address: %q", webhook, address)
	}
	parsed.Path = path
	parsed.RawPath = ""
	hook["address"] = parsed.String()

	if err := c.doJSON(ctx, http.MethodPut, appURL, c.basic, app, nil); err != nil {
		return fmt.Errorf("update application: %w", err)
	}

	logger.Info("webhook updated", "webhook", webhook, "address", hook["address"])
	return nil
}

func lookup(doc map[string]any, keys ...string) (map[string]any, error) {
	current := doc
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("application has no %s settings", key)
		}
		current = next
	}
	return current, nil
}
