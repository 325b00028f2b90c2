// internal/insights/gemini.go
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Raaghu1804/hackathon-zss/internal/breaker"
	"github.com/Raaghu1804/hackathon-zss/internal/coord"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// ErrDisabled is returned when no API key is configured. The rest of the
// system runs fine without the analytics collaborator.
var ErrDisabled = errors.New("insights: analytics disabled, no API key configured")

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// Client answers natural-language questions about plant state by handing a
// structured snapshot plus the operator's question to the Gemini API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	cb         *breaker.Breaker
	lg         *slog.Logger
}

func NewClient(apiKey, modelName string, lg *slog.Logger) *Client {
	l := lg.With(slog.String("component", "insights"))
	return &Client{
		apiKey:     apiKey,
		model:      modelName,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cb:         breaker.New("gemini", breaker.Config{MaxFailures: 3, ResetTimeout: 60 * time.Second}, l),
		lg:         l,
	}
}

// Enabled reports whether a key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// Query sends the operator's question with the current plant snapshot and
// returns the model's answer text.
func (c *Client) Query(ctx context.Context, question string, snapshot coord.AnalyticsContext) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	prompt, err := buildPrompt(question, snapshot)
	if err != nil {
		return "", err
	}

	var answer string
	err = c.cb.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		answer, callErr = c.call(ctx, prompt)
		return callErr
	})
	if err != nil {
		if errors.Is(err, breaker.ErrOpen) {
			c.lg.Warn("analytics circuit open, request refused")
		}
		return "", err
	}
	return answer, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	req.GenerationConfig.Temperature = 0.2
	req.GenerationConfig.MaxOutputTokens = 1024

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("analytics request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read analytics response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analytics API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode analytics response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("analytics response contained no candidates")
	}

	c.lg.Debug("analytics query answered",
		"duration_ms", time.Since(start).Milliseconds(),
		"finish", parsed.Candidates[0].FinishReason)
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func buildPrompt(question string, snapshot coord.AnalyticsContext) (string, error) {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	var b strings.Builder
	b.WriteString("You are an operations analyst for a cement plant. ")
	b.WriteString("Three AI agents supervise the units ")
	for i, u := range model.UnitPriority {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(model.AgentName(u))
	}
	b.WriteString(".\n\nCurrent plant snapshot (unit health and recent agent communications):\n")
	b.Write(data)
	b.WriteString("\n\nOperator question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer concisely using only the snapshot above. If the snapshot does not contain the answer, say so.")
	return b.String(), nil
}
