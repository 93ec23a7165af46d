package vonage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
)

type smsRequest struct {
	MessageType string `json:"message_type"`
	Channel     string `json:"channel"`
	From        string `json:"from"`
	To          string `json:"to"`
	Text        string `json:"text"`
}

type smsResponse struct {
	MessageUUID string `json:"message_uuid"`
}

// SendSMS 通过 Messages API 发送一条短信，失败时包装 ErrDelivery。
func (c *Client) SendSMS(ctx context.Context, from, to, text string) error {
	var out smsResponse
	err := c.doJSON(ctx, http.MethodPost, c.apiURL+"/v1/messages", c.bearer, smsRequest{
		MessageType: "text",
		Channel:     "sms",
		From:        from,
		To:          to,
		Text:        text,
	}, &out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	logger.Debug("sms sent", "to", to, "message_uuid", out.MessageUUID)
	return nil
}
