package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/millionaire/backend/internal/config"
	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

const (
	fieldName  = "Name"
	fieldPhone = "Phone"

	// 防止 offset 循环导致无限翻页
	maxPages = 100
)

// Client 从 Airtable 表读取报名名单。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient 为配置的 base 和表创建客户端。
func NewClient(cfg config.AirtableConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("airtable token, base or table missing")
	}

	return &Client{
		baseURL: fmt.Sprintf("%s/%s/%s",
			strings.TrimRight(cfg.APIURL, "/"),
			url.PathEscape(cfg.BaseID),
			url.PathEscape(cfg.TableID),
		),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type listResponse struct {
	Records []struct {
		ID     string `json:"id"`
		Fields struct {
			Name  string `json:"Name"`
			Phone string `json:"Phone"`
		} `json:"fields"`
	} `json:"records"`
	Offset string `json:"offset"`
}

// ListParticipants 返回所有留有电话号码的记录。
func (c *Client) ListParticipants(ctx context.Context) ([]game.Person, error) {
	var people []game.Person
	offset := ""

	for page := 0; page < maxPages; page++ {
		resp, err := c.listPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		for _, rec := range resp.Records {
			phone := strings.TrimSpace(rec.Fields.Phone)
			if phone == "" {
				continue
			}
			people = append(people, game.Person{Name: strings.TrimSpace(rec.Fields.Name), Phone: phone})
		}

		if resp.Offset == "" {
			logger.Debug("directory listed", "people", len(people), "pages", page+1)
			return people, nil
		}
		offset = resp.Offset
	}

	return nil, fmt.Errorf("airtable pagination did not finish after %d pages", maxPages)
}

func (c *Client) listPage(ctx context.Context, offset string) (*listResponse, error) {
	query := url.Values{}
	query.Add("fields[]", fieldName)
	query.Add("fields[]", fieldPhone)
	if offset != "" {
		query.Set("offset", offset)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("airtable request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read airtable response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("airtable API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse airtable response: %w", err)
	}
	return &out, nil
}
