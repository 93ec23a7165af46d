package vonage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

type ownedNumbersResponse struct {
	Count   int `json:"count"`
	Numbers []struct {
		Country string `json:"country"`
		MSISDN  string `json:"msisdn"`
	} `json:"numbers"`
}

type basicInsightResponse struct {
	Status               int    `json:"status"`
	StatusMessage        string `json:"status_message"`
	CountryName          string `json:"country_name"`
	CountryPrefix        string `json:"country_prefix"`
	NationalFormatNumber string `json:"national_format_number"`
}

// OwnedNumbers 列出应用绑定的号码，
// 并通过 Number Insight 格式化用于展示。
func (c *Client) OwnedNumbers(ctx context.Context) ([]game.Number, error) {
	query := url.Values{}
	query.Set("application_id", c.applicationID)

	var owned ownedNumbersResponse
	if err := c.doJSON(ctx, http.MethodGet, c.restURL+"/account/numbers?"+query.Encode(), c.keyParams, nil, &owned); err != nil {
		return nil, fmt.Errorf("list owned numbers: %w", err)
	}

	numbers := make([]game.Number, 0, len(owned.Numbers))
	for _, n := range owned.Numbers {
		insight, err := c.basicInsight(ctx, n.MSISDN)
		if err != nil {
			return nil, err
		}
		numbers = append(numbers, game.Number{
			Country:     n.Country,
			CountryName: insight.CountryName,
			MSISDN:      n.MSISDN,
			Number:      fmt.Sprintf("+%s %s", insight.CountryPrefix, insight.NationalFormatNumber),
		})
	}
	return numbers, nil
}

func (c *Client) basicInsight(ctx context.Context, msisdn string) (basicInsightResponse, error) {
	query := url.Values{}
	query.Set("number", msisdn)

	var insight basicInsightResponse
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL+"/ni/basic/json?"+query.Encode(), c.keyParams, nil, &insight); err != nil {
		return insight, fmt.Errorf("number insight for %s: %w", msisdn, err)
	}
	if insight.Status != 0 {
		return insight, fmt.Errorf("number insight for %s: status %d %s", msisdn, insight.Status, insight.StatusMessage)
	}
	return insight, nil
}
