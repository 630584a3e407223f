package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"misa/internal/ai"
	apperrors "misa/internal/errors"
	"misa/internal/events"
	"misa/internal/importer"
	"misa/internal/logger"
	"misa/internal/models"
	"misa/internal/pagination"
	"misa/internal/repository"
)

// ClassifyConcurrency bounds the provider calls made by one classified import.
const ClassifyConcurrency = 4

// transactionService handles ledger writes and reads for one user at a time.
type transactionService struct {
	txs         repository.TransactionRepository
	users       repository.UserRepository
	categorizer *ai.Categorizer
	publisher   events.Publisher
}

// NewTransactionService creates a new TransactionServicer. A nil publisher
// disables events.
func NewTransactionService(
	txs repository.TransactionRepository,
	users repository.UserRepository,
	categorizer *ai.Categorizer,
	publisher events.Publisher,
) TransactionServicer {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &transactionService{txs: txs, users: users, categorizer: categorizer, publisher: publisher}
}

// Record stores one manual entry. A supplied category must belong to the
// user's configuration; otherwise the categorizer picks one.
func (s *transactionService) Record(ctx context.Context, username string, input RecordInput) (*models.Transaction, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	concept := strings.TrimSpace(input.Concept)
	category := strings.TrimSpace(input.Category)
	if category != "" && !user.Config.AcceptsCategory(category) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("unknown category %q", category))
	}

	tx := models.Transaction{
		Owner:   username,
		Date:    input.Date,
		Concept: concept,
		Amount:  input.Amount,
		Method:  strings.TrimSpace(input.Method),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	label := s.categorizer.Label(ctx, concept, category, user.Config.CategoryNames())
	tx.Category = label.Category
	tx.Subcategory = label.Subcategory

	id, err := s.txs.Append(ctx, tx)
	if err != nil {
		return nil, err
	}
	tx.ID = id

	events.Emit(ctx, s.publisher, events.New(events.TypeTransactionRecorded, username, []string{id}, 1))
	return &tx, nil
}

// List returns the user's transactions, newest first, filtered and paged.
func (s *transactionService) List(ctx context.Context, username string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	all, err := s.txs.List(ctx, username)
	if err != nil {
		return nil, err
	}

	selected := make([]models.Transaction, 0, len(all))
	for _, tx := range all {
		if filter.Period != nil && (tx.Invalid || !filter.Period.Contains(tx.Date)) {
			continue
		}
		if filter.Category != nil && tx.Category != *filter.Category {
			continue
		}
		selected = append(selected, tx)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[j].Date.Before(selected[i].Date)
	})

	result := pagination.Slice(selected, page)
	return &result, nil
}

// ReplaceAll applies a bulk edit of the user's ledger and returns the
// stored result. Categories are not checked so rows filed under a removed
// category survive the edit.
func (s *transactionService) ReplaceAll(ctx context.Context, username string, records []models.Transaction) ([]models.Transaction, error) {
	for i := range records {
		records[i].Concept = strings.TrimSpace(records[i].Concept)
		records[i].Category = strings.TrimSpace(records[i].Category)
		if records[i].Category == "" {
			records[i].Category = models.CategoryOther
		}
	}

	if err := s.txs.ReplaceAll(ctx, username, records); err != nil {
		return nil, err
	}

	stored, err := s.txs.List(ctx, username)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(stored))
	for i, tx := range stored {
		ids[i] = tx.ID
	}
	events.Emit(ctx, s.publisher, events.New(events.TypeTransactionsReplaced, username, ids, len(stored)))
	return stored, nil
}

// Import parses a CSV statement and appends every row, or none. With
// classify set, rows without a category go through the categorizer
// concurrently. A category the configuration does not know becomes Otros.
func (s *transactionService) Import(ctx context.Context, username string, r io.Reader, classify bool) (*ImportResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := importer.Parse(r)
	if err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, len(rows))
	pending := make([]int, 0, len(rows))
	for i, row := range rows {
		txs[i] = row.Transaction(username)
		if row.Category == "" {
			if classify {
				pending = append(pending, i)
			}
			continue
		}
		if !user.Config.AcceptsCategory(txs[i].Category) {
			txs[i].Category = models.CategoryOther
		}
	}

	if len(pending) > 0 {
		candidates := user.Config.CategoryNames()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(ClassifyConcurrency)
		for _, i := range pending {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				label := s.categorizer.Classify(gctx, txs[i].Concept, candidates)
				txs[i].Category = label.Category
				txs[i].Subcategory = label.Subcategory
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	ids, err := s.txs.AppendAll(ctx, txs)
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("transactions imported", "username", username, "count", len(ids), "classified", len(pending))
	events.Emit(ctx, s.publisher, events.New(events.TypeTransactionsImported, username, ids, len(ids)))
	return &ImportResult{Imported: len(ids), Classified: len(pending), IDs: ids}, nil
}

// Classify previews the label the categorizer would assign to concept.
func (s *transactionService) Classify(ctx context.Context, username, concept string) (ai.Classification, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return ai.Classification{}, apperrors.WithMessage(apperrors.ErrValidation, "concept is required")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return ai.Classification{}, err
	}
	return s.categorizer.Classify(ctx, concept, user.Config.CategoryNames()), nil
}
