package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	summarizerRole = "You are a professional meeting summarizer."

	summaryInstruction = "You are a helpful assistant that summarizes meeting transcripts. " +
		"Produce a short summary (3-8 bullet points) and explicit action items (if any). " +
		"Then provide a one-line subject line suitable for email."

	answerInstruction = "You are a meeting assistant. Use the meeting transcript to answer the user's question. " +
		"Be concise and refer to specific speakers or timestamps if present."
)

// Config contains chat-completion client configuration
type Config struct {
	APIKey           string
	BaseURL          string // empty means the public OpenAI endpoint
	Model            string
	Timeout          time.Duration
	SummaryMaxTokens int
	AnswerMaxTokens  int
}

// chatAPI is the slice of the OpenAI client this package uses
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates summaries and answers through the chat-completion API
type Client struct {
	config Config
	api    chatAPI
	logger *slog.Logger

	// Statistics
	totalRequests  uint64
	failedRequests uint64

	mu sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests  uint64 `json:"total_requests"`
	FailedRequests uint64 `json:"failed_requests"`
}

// NewClient creates a new chat-completion client
func NewClient(config Config, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}

	if config.Model == "" {
		config.Model = openai.GPT4Turbo
	}

	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if config.SummaryMaxTokens <= 0 {
		config.SummaryMaxTokens = 400
	}

	if config.AnswerMaxTokens <= 0 {
		config.AnswerMaxTokens = 300
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		config: config,
		api:    openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// Summarize produces a bullet-point summary, action items, and a one-line
// subject for the given transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	userContent := summaryInstruction + "\n\nTranscript:\n" + transcript

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarizerRole},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		MaxTokens: c.config.SummaryMaxTokens,
	})
}

// Answer responds to a question using the transcript as context
func (c *Client) Answer(ctx context.Context, transcript, question string) (string, error) {
	prompt := answerInstruction +
		"\n\nTRANSCRIPT:\n" + transcript +
		"\n\nQUESTION:\n" + question +
		"\n\nAnswer:"

	return c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: c.config.AnswerMaxTokens,
	})
}

// complete performs a single chat-completion call. No retry: a generation
// failure is surfaced to the caller immediately.
func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	c.incrementTotalRequests()

	startTime := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		c.incrementFailedRequests()
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.incrementFailedRequests()
		return "", fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	c.logger.Debug("Chat completion finished",
		slog.String("model", req.Model),
		slog.Int("output_chars", len(text)),
		slog.Duration("elapsed", time.Since(startTime)),
	)

	return text, nil
}

func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ClientStats{
		TotalRequests:  c.totalRequests,
		FailedRequests: c.failedRequests,
	}
}
