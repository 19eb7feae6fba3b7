package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type Config struct {
	BaseURL     string // empty = api.openai.com
	APIKey      string
	Model       string
	VisionModel string // empty = Model
	Temperature float64
	HTTPClient  *http.Client
}

// Error wraps every failed model call.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrEmptyReply means the endpoint answered without any choice.
var ErrEmptyReply = errors.New("model returned no choices")

// Client talks to any OpenAI-compatible chat completions endpoint (OpenAI,
// Ollama, llama.cpp server, ...). Every call is a single attempt.
type Client struct {
	api         openai.Client
	model       string
	visionModel string
	temperature float64
}

func New(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	vision := cfg.VisionModel
	if vision == "" {
		vision = cfg.Model
	}

	return &Client{
		api:         openai.NewClient(opts...),
		model:       cfg.Model,
		visionModel: vision,
		temperature: cfg.Temperature,
	}
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.chat(ctx, "complete", c.model, openai.UserMessage(prompt))
}

// Describe asks the vision model about a PNG image.
func (c *Client) Describe(ctx context.Context, prompt string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", &Error{Op: "describe", Err: errors.New("empty image")}
	}

	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	msg := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}),
	})

	return c.chat(ctx, "describe", c.visionModel, msg)
}

func (c *Client) chat(ctx context.Context, op, model string, msg openai.ChatCompletionMessageParamUnion) (string, error) {
	start := time.Now()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    []openai.ChatCompletionMessageParamUnion{msg},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Op: op, Err: ErrEmptyReply}
	}

	content := resp.Choices[0].Message.Content
	log.Debug("Model replied", "op", op, "model", model, "chars", len(content), "took", time.Since(start))

	return content, nil
}
