// Package summary produces short natural-language descriptions of billing
// documents. When no OpenAI key is configured it falls back to a plain
// deterministic sentence, so the endpoint always answers.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/invozo/invozo/internal/config"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ItemLine struct {
	Description string
	Quantity    int64
	Amount      decimal.Decimal
}

type Input struct {
	Kind         string
	Number       string
	Status       string
	CustomerName string
	Total        decimal.Decimal
	Currency     string
	DueAt        *time.Time
	Notes        string
	Items        []ItemLine
}

type Summarizer interface {
	DocumentSummary(ctx context.Context, input Input) (string, error)
}

type SummarizerParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

func NewSummarizer(p SummarizerParam) Summarizer {
	log := p.Log.Named("summary")
	if p.Config.OpenAI.APIKey == "" {
		log.Info("no OpenAI key configured, using plain summaries")
		return &plainSummarizer{}
	}
	return &openAISummarizer{
		client:   openai.NewClient(p.Config.OpenAI.APIKey),
		model:    p.Config.OpenAI.Model,
		log:      log,
		fallback: &plainSummarizer{},
	}
}

type openAISummarizer struct {
	client   *openai.Client
	model    string
	log      *zap.Logger
	fallback Summarizer
}

func (s *openAISummarizer) DocumentSummary(ctx context.Context, input Input) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You summarize billing documents for small-business owners. Answer in two sentences, plain language, no markup.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: describe(input),
			},
		},
	})
	if err != nil {
		s.log.Warn("completion failed, falling back to plain summary", zap.Error(err))
		return s.fallback.DocumentSummary(ctx, input)
	}
	if len(resp.Choices) == 0 {
		return s.fallback.DocumentSummary(ctx, input)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type plainSummarizer struct{}

func (s *plainSummarizer) DocumentSummary(_ context.Context, input Input) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = "document"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s for %s totals %s %s and is currently %s.",
		strings.ToUpper(kind[:1])+kind[1:], input.Number, input.CustomerName,
		strings.ToUpper(input.Currency), input.Total.StringFixed(2), input.Status)
	if input.DueAt != nil {
		fmt.Fprintf(&b, " Payment is due by %s.", input.DueAt.UTC().Format("January 2, 2006"))
	}
	if n := len(input.Items); n == 1 {
		fmt.Fprintf(&b, " It covers 1 line item.")
	} else if n > 1 {
		fmt.Fprintf(&b, " It covers %d line items.", n)
	}
	return b.String(), nil
}

func describe(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s, status %s, customer %s, total %s %s.\n",
		input.Kind, input.Number, input.Status, input.CustomerName,
		strings.ToUpper(input.Currency), input.Total.StringFixed(2))
	if input.DueAt != nil {
		fmt.Fprintf(&b, "Due %s.\n", input.DueAt.UTC().Format("2006-01-02"))
	}
	for _, item := range input.Items {
		fmt.Fprintf(&b, "- %d x %s (%s)\n", item.Quantity, item.Description, item.Amount.StringFixed(2))
	}
	if input.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", input.Notes)
	}
	return b.String()
}
