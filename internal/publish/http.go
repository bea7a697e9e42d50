package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultGatewayTimeout = 30 * time.Second

// GatewayPublisher публикует через внешний publish-gateway.
//
// Gateway инкапсулирует платформенные API; движку остаётся один
// HTTP-контракт: POST {base}/{platform}/publish с Bearer-токеном
// аккаунта. Ответ 2xx:
//
//	{"id": "...", "url": "..."}
//
// Ответ >= 400 трактуется как логическая неудача публикации и
// возвращается внутри Result, а не через error — текст попадает
// в классификатор ошибок как есть.
type GatewayPublisher struct {
	baseURL string
	client  *http.Client
}

// gatewayRequest — тело запроса к gateway.
type gatewayRequest struct {
	AccountID uuid.UUID      `json:"account_id"`
	Text      string         `json:"text"`
	MediaURLs []string       `json:"media_urls,omitempty"`
	Settings  map[string]any `json:"settings,omitempty"`
}

// gatewayResponse — тело успешного ответа gateway.
type gatewayResponse struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// NewGatewayPublisher создаёт publisher поверх gateway по baseURL.
func NewGatewayPublisher(baseURL string) *GatewayPublisher {
	return &GatewayPublisher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultGatewayTimeout},
	}
}

// Publish реализует Publisher.
func (g *GatewayPublisher) Publish(ctx context.Context, req *Request) (*Result, error) {
	body, err := json.Marshal(gatewayRequest{
		AccountID: req.AccountID,
		Text:      req.Content.Text,
		MediaURLs: req.Content.MediaURLs,
		Settings:  req.Content.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal publish request: %w", err)
	}

	url := g.baseURL + "/" + req.Platform + "/publish"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create publish request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Credentials != nil {
		req.Credentials.SetAuthHeader(httpReq)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("publish to %s: %w", req.Platform, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read publish response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &Result{
			Success:     false,
			Error:       fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
			RawResponse: string(respBody),
		}, nil
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return &Result{
			Success:     false,
			Error:       fmt.Sprintf("malformed gateway response: %s", truncate(string(respBody), 200)),
			RawResponse: string(respBody),
		}, nil
	}

	return &Result{
		Success:     true,
		PostID:      parsed.ID,
		URL:         parsed.URL,
		RawResponse: string(respBody),
	}, nil
}

// truncate обрезает строку до max символов.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
