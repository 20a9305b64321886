package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cognicore/techterms/internal/llm"
)

// Reviewer approves or rejects a single keyword.
type Reviewer interface {
	Approve(ctx context.Context, term string) (bool, error)
}

// Review asks r about each term. A reviewer error keeps the term; once ctx
// is done the remaining terms are kept unreviewed.
func Review(ctx context.Context, r Reviewer, terms []string, logger *slog.Logger) (kept, rejected []string) {
	if logger == nil {
		logger = slog.Default()
	}
	for i, term := range terms {
		if ctx.Err() != nil {
			logger.Warn("review interrupted, keeping remaining terms", "remaining", len(terms)-i)
			kept = append(kept, terms[i:]...)
			break
		}
		ok, err := r.Approve(ctx, term)
		if err != nil {
			logger.Warn("review failed, keeping term", "term", term, "err", err)
			kept = append(kept, term)
			continue
		}
		if ok {
			kept = append(kept, term)
		} else {
			rejected = append(rejected, term)
		}
	}
	return kept, rejected
}

const defaultPrompt = "Is '%s' a concrete technical skill (language, framework, database, platform, tool or protocol) that belongs in a tech-skills dictionary? Reply with JSON {\"approve\": true|false}."

// PromptReviewer posts {"prompt": ...} to an endpoint that answers
// {"approve": bool}.
type PromptReviewer struct {
	Endpoint string
	APIKey   string
	Prompt   string // fmt template with one %s for the term

	HTTPClient *http.Client
}

type requestPayload struct {
	Prompt string `json:"prompt"`
}

type responsePayload struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

func (p *PromptReviewer) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Approve implements Reviewer.
func (p *PromptReviewer) Approve(ctx context.Context, term string) (bool, error) {
	if p.Endpoint == "" {
		return false, fmt.Errorf("prompt reviewer: endpoint required")
	}

	body, err := json.Marshal(requestPayload{Prompt: prompt(p.Prompt, term)})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("prompt reviewer: http %d", resp.StatusCode)
	}

	var payload responsePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}
	return payload.Approve, nil
}

// ChatReviewer asks an OpenAI-compatible chat model.
type ChatReviewer struct {
	Client *llm.Client
	System string
	Prompt string // fmt template with one %s for the term
}

// Approve implements Reviewer.
func (c *ChatReviewer) Approve(ctx context.Context, term string) (bool, error) {
	system := c.System
	if system == "" {
		system = "You curate a dictionary of technical skills found in job postings. Answer only with JSON."
	}
	v, err := c.Client.Judge(ctx, system, prompt(c.Prompt, term))
	if err != nil {
		return false, err
	}
	return v.Approve, nil
}

func prompt(tpl, term string) string {
	if tpl == "" {
		tpl = defaultPrompt
	}
	return fmt.Sprintf(tpl, term)
}
