package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
)

const (
	defaultMaxTokens = 2048
	defaultTimeout   = 60 * time.Second
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the Anthropic Messages API.
type Client struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := anthropic.ModelClaudeHaiku4_5
	if opts.Model != "" {
		model = anthropic.Model(opts.Model)
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	client := anthropic.NewClient(reqOpts...)
	return &Client{client: &client, model: model, maxTokens: maxTokens}
}

// Generate sends prompt as one user message and joins the text blocks of the reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %w", domain.ErrQuotaExceeded, err)
		}
		return "", &domain.Error{Kind: domain.KindUpstream, Op: "generate", Err: fmt.Errorf("anthropic API error: %w", err)}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &domain.Error{Kind: domain.KindUpstream, Op: "generate", Err: errors.New("no response from anthropic")}
	}
	return b.String(), nil
}
