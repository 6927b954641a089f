package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/invozo/invozo/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestPlainSummarizerWithoutKey(t *testing.T) {
	s := NewSummarizer(SummarizerParam{Config: config.Config{}, Log: zap.NewNop()})
	if _, ok := s.(*plainSummarizer); !ok {
		t.Fatalf("expected plain summarizer when no key is set, got %T", s)
	}

	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	got, err := s.DocumentSummary(context.Background(), Input{
		Kind:         "invoice",
		Number:       "INV-0001",
		Status:       "pending",
		CustomerName: "Acme Corp",
		Total:        decimal.NewFromInt(2242),
		Currency:     "usd",
		DueAt:        &due,
		Items:        []ItemLine{{Description: "Consulting", Quantity: 2}, {Description: "Support", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("DocumentSummary: %v", err)
	}
	for _, want := range []string{"Invoice INV-0001", "Acme Corp", "USD 2242.00", "pending", "June 15, 2025", "2 line items"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q missing %q", got, want)
		}
	}
}

func TestOpenAISummarizerSelectedWithKey(t *testing.T) {
	cfg := config.Config{OpenAI: config.OpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"}}
	s := NewSummarizer(SummarizerParam{Config: cfg, Log: zap.NewNop()})
	if _, ok := s.(*openAISummarizer); !ok {
		t.Fatalf("expected OpenAI summarizer when key is set, got %T", s)
	}
}
