package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
)

// Fixed answers returned instead of a provider response.
const (
	NoDataMessage      = "There are no transactions in the selected period to analyze."
	UnavailableMessage = "The financial assistant is not available right now. Please try again later."
)

// MaxContextTransactions bounds how many transactions are sent to the analyst.
const MaxContextTransactions = 200

// Analyst is implemented by question-answering providers.
type Analyst interface {
	Ask(ctx context.Context, question string, transactions []models.Transaction) (string, error)
}

// Assistant answers questions about transactions and never fails: missing
// data and provider problems map to fixed messages.
type Assistant struct {
	analyst Analyst
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewAssistant creates an Assistant. A nil analyst always reports
// UnavailableMessage.
func NewAssistant(analyst Analyst, timeout time.Duration) *Assistant {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Assistant{analyst: analyst, timeout: timeout, log: logger.Named("assistant")}
}

// Available reports whether a provider is configured.
func (a *Assistant) Available() bool { return a != nil && a.analyst != nil }

// Ask answers question from transactions. Invalid rows are dropped and only
// the most recent MaxContextTransactions are sent. One call, no retry.
func (a *Assistant) Ask(ctx context.Context, question string, transactions []models.Transaction) string {
	bounded := BoundContext(transactions, MaxContextTransactions)
	if len(bounded) == 0 {
		return NoDataMessage
	}
	if !a.Available() {
		return UnavailableMessage
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		answer string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		answer, err := a.analyst.Ask(callCtx, question, bounded)
		done <- outcome{answer: answer, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			a.log.Warnw("analyst call failed", "error", out.err)
			return UnavailableMessage
		}
		if strings.TrimSpace(out.answer) == "" {
			a.log.Warnw("analyst returned an empty answer")
			return UnavailableMessage
		}
		return out.answer
	case <-callCtx.Done():
		a.log.Warnw("analyst call abandoned", "error", callCtx.Err())
		return UnavailableMessage
	}
}

// BoundContext keeps the countable transactions, most recent first, up to limit.
func BoundContext(transactions []models.Transaction, limit int) []models.Transaction {
	out := make([]models.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Countable() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GeminiAnalyst answers questions with a Gemini model.
type GeminiAnalyst struct {
	models contentGenerator
	model  string
}

// NewGeminiAnalyst creates an Analyst backed by client.
func NewGeminiAnalyst(client *genai.Client, model string) *GeminiAnalyst {
	return newGeminiAnalyst(client.Models, model)
}

func newGeminiAnalyst(models contentGenerator, model string) *GeminiAnalyst {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiAnalyst{models: models, model: model}
}

type contextRow struct {
	Date     string `json:"date"`
	Concept  string `json:"concept"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Method   string `json:"method"`
}

// Ask implements Analyst.
func (g *GeminiAnalyst) Ask(ctx context.Context, question string, transactions []models.Transaction) (string, error) {
	rows := make([]contextRow, len(transactions))
	for i, tx := range transactions {
		rows[i] = contextRow{
			Date:     tx.Date.String(),
			Concept:  tx.Concept,
			Category: tx.Category,
			Amount:   tx.Amount.StringFixed(2),
			Method:   tx.Method,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}

	prompt := "You are a personal finance analyst. Answer the question using only the transactions below.\n" +
		"Be concise and quote amounts with two decimals.\n\n" +
		"Transactions (JSON):\n" + string(data) + "\n\n" +
		"Question: " + question + "\n"

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCapability, fmt.Errorf("generate content: %w", err))
	}
	return resp.Text(), nil
}
