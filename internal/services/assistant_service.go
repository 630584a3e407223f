package services

import (
	"context"
	"strings"

	"misa/internal/ai"
	"misa/internal/analytics"
	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/repository"
)

// MaxQuestionLength bounds the question forwarded to the analyst.
const MaxQuestionLength = 1000

// assistantService answers questions about a user's ledger.
type assistantService struct {
	txs       repository.TransactionRepository
	assistant *ai.Assistant
}

// NewAssistantService creates a new AssistantServicer.
func NewAssistantService(txs repository.TransactionRepository, assistant *ai.Assistant) AssistantServicer {
	return &assistantService{txs: txs, assistant: assistant}
}

// Ask forwards question with the user's transactions, limited to period
// when one is given. Provider problems are reported in the answer text.
func (s *assistantService) Ask(ctx context.Context, username, question string, period *models.Period) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "question is required")
	}
	if len([]rune(question)) > MaxQuestionLength {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "question is too long (max 1000 characters)")
	}

	txs, err := s.txs.List(ctx, username)
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, Available: s.assistant.Available()}
	if period != nil {
		txs = analytics.FilterPeriod(txs, *period)
		answer.Period = period.String()
	}

	answer.Transactions = len(ai.BoundContext(txs, ai.MaxContextTransactions))
	answer.Answer = s.assistant.Ask(ctx, question, txs)
	return answer, nil
}
