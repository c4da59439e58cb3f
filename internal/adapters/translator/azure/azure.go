// Package azure implements the translation oracle against the Azure
// Translator v3 REST API.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/malinali-app/trad/internal/domain"
)

const defaultBaseURL = "https://api.cognitive.microsofttranslator.com"

type Client struct {
	APIKey  string
	Region  string
	BaseURL string
	http    *resty.Client
}

func New(apiKey, region, baseURL string) *Client {
	c := resty.New().SetTimeout(30 * time.Second)
	return &Client{APIKey: apiKey, Region: region, BaseURL: baseURL, http: c}
}

type translateItem struct {
	Text string `json:"Text"`
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// Translate sends texts in one request and returns the translations in
// request order. A 429 answer is reported as domain.ErrRateLimited so the
// caller can back off; the count of returned texts is validated against
// the request (domain.ErrShapeMismatch otherwise).
func (c *Client) Translate(ctx context.Context, from, to string, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	url := strings.TrimRight(base, "/") + "/translate"
	body := make([]translateItem, 0, len(texts))
	for _, t := range texts {
		body = append(body, translateItem{Text: t})
	}
	var resp []translateResponse
	r := c.http.R().SetContext(ctx).
		SetHeader("Ocp-Apim-Subscription-Key", c.APIKey).
		SetHeader("Content-Type", "application/json").
		SetQueryParams(map[string]string{
			"api-version": "3.0",
			"from":        from,
			"to":          to,
		}).
		SetBody(body).SetResult(&resp)
	if c.Region != "" {
		r.SetHeader("Ocp-Apim-Subscription-Region", c.Region)
	}
	rr, err := r.Post(url)
	if err != nil {
		return nil, fmt.Errorf("azure translate: %w", err)
	}
	if rr.StatusCode() == http.StatusTooManyRequests {
		return nil, fmt.Errorf("azure translate %s->%s: %w", from, to, domain.ErrRateLimited)
	}
	if rr.IsError() {
		return nil, fmt.Errorf("azure translate: %s; body: %s", rr.Status(), rr.String())
	}
	if len(resp) != len(texts) {
		return nil, fmt.Errorf("azure translate: sent %d, got %d: %w", len(texts), len(resp), domain.ErrShapeMismatch)
	}
	out := make([]string, 0, len(resp))
	for i, item := range resp {
		if len(item.Translations) == 0 {
			return nil, fmt.Errorf("azure translate: empty translation at %d: %w", i, domain.ErrShapeMismatch)
		}
		out = append(out, item.Translations[0].Text)
	}
	return out, nil
}
