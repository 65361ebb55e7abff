package translate

import (
	"context"
	"errors"
	"fmt"
	"time"

	resty "github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// errorSystemPrompt is the fixed system prompt demanding short,
// beginner-friendly isiXhosa that refers to constructs by their
// source-language keywords. Carried over verbatim from the backend it was
// distilled from.
const errorSystemPrompt = `You are a helpful assistant that explains runtime errors to students using clear, accurate, and beginner-friendly isiXhosa.

IMPORTANT: These students write code using isiXhosa keywords that get translated to the target language before running. When referring to programming keywords in your explanations, ALWAYS use the isiXhosa equivalents, NEVER the target-language keywords.

STRICT RULES:
1. Use isiXhosa only, not isiZulu or any mixed dialect.
2. Write short, clear, grammatically correct isiXhosa sentences.
3. Never switch to English.
4. Always mention the line number from the error text.
5. Do not guess causes — only explain what the error means based on the message and line.
6. Keep explanations to 1-2 sentences, encouraging in tone.

Respond with only the isiXhosa translation.`

// timeoutSystemPrompt diagnoses likely infinite-loop patterns from the
// original source when a session is killed for exceeding its idle budget.
const timeoutSystemPrompt = `You are a programming tutor explaining timeout terminations to isiXhosa-speaking first-year students.

Analyze the isiXhosa source for likely causes: a missing counter update, a condition that never becomes false, unbounded recursion, or a large bounded loop.

STRICT RULES:
1. Use isiXhosa only.
2. 2-3 sentences, encouraging tone.
3. When certain, name the specific line number and what to change.

Respond with only the isiXhosa explanation.`

// Config configures the Anthropic-backed translator.
type Config struct {
	APIKey          string
	Model           string
	MaxTokens       int
	Timeout         time.Duration
	RequestsPerSec  float64
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = "claude-sonnet-4-20250514"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 1
	}
	return c
}

// AnthropicTranslator implements core.Translator over the Anthropic
// Messages API via a plain REST client, rate-limited so that a burst of
// simultaneous session timeouts does not hammer the collaborator.
type AnthropicTranslator struct {
	client  *resty.Client
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewAnthropicTranslator(cfg Config, log *zap.Logger) *AnthropicTranslator {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetBaseURL(anthropicMessagesURL).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", "2023-06-01").
		SetHeader("content-type", "application/json")

	return &AnthropicTranslator{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:     log,
	}
}

type messageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messageTurn struct {
	Role    string            `json:"role"`
	Content []messageContent `json:"content"`
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []messageTurn `json:"messages"`
}

type messagesResponse struct {
	Content []messageContent `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *AnthropicTranslator) call(ctx context.Context, system, userText string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body := messagesRequest{
		Model:     a.cfg.Model,
		MaxTokens: a.cfg.MaxTokens,
		System:    system,
		Messages: []messageTurn{
			{Role: "user", Content: []messageContent{{Type: "text", Text: userText}}},
		},
	}

	var out messagesResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("")
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anthropic request: status %d", resp.StatusCode())
	}
	if out.Error != nil {
		return "", errors.New(out.Error.Message)
	}
	if len(out.Content) == 0 {
		return "", errors.New("anthropic: empty response")
	}
	return out.Content[0].Text, nil
}

func (a *AnthropicTranslator) TranslateError(ctx context.Context, remappedErrorText string) (string, error) {
	text, err := a.call(ctx, errorSystemPrompt, remappedErrorText)
	if err != nil {
		a.log.Warn("diagnostic translation failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

func (a *AnthropicTranslator) TranslateTimeout(ctx context.Context, originalSource string) (string, error) {
	text, err := a.call(ctx, timeoutSystemPrompt, originalSource)
	if err != nil {
		a.log.Warn("timeout diagnosis failed", zap.Error(err))
		return "", err
	}
	return text, nil
}
