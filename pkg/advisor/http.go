package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/board"
)

// DefaultURL is the public chess-api.com endpoint
const DefaultURL = "https://chess-api.com/v1"

// HTTPAdvisor calls a chess-api.com compatible endpoint
type HTTPAdvisor struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

type apiRequest struct {
	FEN             string `json:"fen"`
	Depth           int    `json:"depth"`
	MaxThinkingTime int64  `json:"maxThinkingTime"`
	Variants        int    `json:"variants,omitempty"`
}

type apiResponse struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Promotion string   `json:"promotion"`
	SAN       string   `json:"san"`
	WinChance *float64 `json:"winChance"`
}

// NewHTTPAdvisor creates an advisor for url with a per-request timeout
func NewHTTPAdvisor(url string, timeout time.Duration, logger *zap.Logger) *HTTPAdvisor {
	if url == "" {
		url = DefaultURL
	}

	return &HTTPAdvisor{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Advise posts the position and decodes the suggested move
func (a *HTTPAdvisor) Advise(ctx context.Context, req Request) (Advice, error) {
	body, err := json.Marshal(apiRequest{
		FEN:             req.FEN,
		Depth:           req.Depth,
		MaxThinkingTime: req.ThinkingTime.Milliseconds(),
	})
	if err != nil {
		return Advice{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Advice{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Warn("advisory request failed", zap.Error(err))
		return Advice{}, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		a.logger.Warn("advisory request rejected", zap.Int("status", resp.StatusCode))
		return Advice{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Advice{}, fmt.Errorf("%w: decode: %s", ErrUnavailable, err)
	}

	if out.Type == "error" || out.From == "" || out.To == "" {
		return Advice{}, fmt.Errorf("%w: %s", ErrUnavailable, out.Text)
	}

	advice := Advice{
		Move: board.MoveSpec{From: out.From, To: out.To, Promotion: out.Promotion},
		SAN:  out.SAN,
	}
	if out.WinChance != nil {
		advice.WinChance = *out.WinChance
		advice.HasWinChance = true
	}

	return advice, nil
}
