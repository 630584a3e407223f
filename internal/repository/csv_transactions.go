package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/logger"
	"misa/internal/models"
	"misa/internal/uuid"
)

// csvColumns is the persisted column order.
var csvColumns = []string{"id", "owner", "date", "concept", "category", "subcategory", "amount", "method"}

// csvAliases maps the headers of older ledgers onto current column names.
var csvAliases = map[string]string{
	"fecha":     "date",
	"concepto":  "concept",
	"categoria": "category",
	"monto":     "amount",
	"metodo":    "method",
	"usuario":   "owner",
}

// storedRow is one ledger line. The raw date and amount are kept so rows
// that failed to parse are written back unchanged. rawLine is set only for
// lines the CSV reader rejected; those are written back verbatim.
type storedRow struct {
	tx        models.Transaction
	rawDate   string
	rawAmount string
	rawLine   string
}

func newStoredRow(tx models.Transaction) storedRow {
	return storedRow{tx: tx, rawDate: tx.Date.String(), rawAmount: tx.Amount.String()}
}

// CSVTransactionRepository keeps every user's transactions in one CSV file.
// All writes are read-modify-write cycles under one lock and land through an
// atomic rename, so concurrent appends never lose each other.
type CSVTransactionRepository struct {
	path        string
	legacyOwner string
	mu          sync.RWMutex
}

// NewCSVTransactionRepository creates a repository over path. A missing file
// is treated as an empty ledger.
func NewCSVTransactionRepository(path string) *CSVTransactionRepository {
	return &CSVTransactionRepository{path: path}
}

// WithLegacyOwner assigns rows that carry no owner column (single-user
// ledgers) to owner. The owner is persisted on the next write.
func (r *CSVTransactionRepository) WithLegacyOwner(owner string) *CSVTransactionRepository {
	r.legacyOwner = strings.TrimSpace(owner)
	return r
}

// Append implements TransactionRepository.
func (r *CSVTransactionRepository) Append(ctx context.Context, tx models.Transaction) (string, error) {
	ids, err := r.AppendAll(ctx, []models.Transaction{tx})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AppendAll implements TransactionRepository.
func (r *CSVTransactionRepository) AppendAll(ctx context.Context, txs []models.Transaction) ([]string, error) {
	prepared, ids, err := prepareAppend(txs)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, tx := range prepared {
		rows = append(rows, newStoredRow(tx))
	}
	if err := r.write(rows); err != nil {
		return nil, err
	}

	logger.Get().Infow("transactions appended", "path", r.path, "count", len(prepared))
	return ids, nil
}

// List implements TransactionRepository.
func (r *CSVTransactionRepository) List(ctx context.Context, owner string) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.load()
	if err != nil {
		return nil, err
	}

	out := []models.Transaction{}
	for _, row := range rows {
		if row.tx.Owner == owner {
			out = append(out, row.tx)
		}
	}
	return out, nil
}

// ReplaceAll implements TransactionRepository.
func (r *CSVTransactionRepository) ReplaceAll(ctx context.Context, owner string, records []models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	rows, err := r.load()
	if err != nil {
		return err
	}

	owners := make(map[string]string, len(rows))
	for _, row := range rows {
		owners[row.tx.ID] = row.tx.Owner
	}
	replacement, err := prepareReplacement(owner, records, func(id string) bool {
		o, ok := owners[id]
		return ok && o != owner
	})
	if err != nil {
		return err
	}

	kept := make([]storedRow, 0, len(rows)+len(replacement))
	for _, row := range rows {
		if row.tx.Owner != owner {
			kept = append(kept, row)
		}
	}
	for _, tx := range replacement {
		kept = append(kept, newStoredRow(tx))
	}

	if err := r.write(kept); err != nil {
		return err
	}

	logger.Get().Infow("transactions replaced", "path", r.path, "owner", owner, "count", len(replacement))
	return nil
}

// load reads the whole ledger. Callers hold the lock.
func (r *CSVTransactionRepository) load() ([]storedRow, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("open ledger: %w", err))
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("read ledger header: %w", err))
	}
	columns := indexColumns(header)

	var rows []storedRow
	for {
		start := reader.InputOffset()
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, apperrors.Wrap(apperrors.ErrStorage, fmt.Errorf("read ledger: %w", err))
			}
			raw := strings.TrimRight(string(data[start:reader.InputOffset()]), "\r\n")
			logger.Get().Warnw("unreadable ledger line kept as invalid", "path", r.path, "line", parseErr.StartLine, "error", err)
			rows = append(rows, r.rawRow(columns, raw, parseErr.StartLine))
			continue
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, r.decodeRow(columns, record, line))
	}
	return rows, nil
}

// rawRow keeps a line the CSV reader rejected. Fields are split on commas
// only so the row can still be attributed to its owner.
func (r *CSVTransactionRepository) rawRow(columns map[string]int, raw string, line int) storedRow {
	row := r.decodeRow(columns, strings.Split(raw, ","), line)
	row.tx.Invalid = true
	row.rawLine = raw
	return row
}

// write persists rows atomically. Callers hold the write lock.
func (r *CSVTransactionRepository) write(rows []storedRow) error {
	err := writeFileAtomic(r.path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(csvColumns); err != nil {
			return err
		}
		for _, row := range rows {
			if row.rawLine != "" {
				w.Flush()
				if _, err := io.WriteString(f, row.rawLine+"\n"); err != nil {
					return err
				}
				continue
			}
			if err := w.Write(encodeRow(row)); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStorage, err)
	}
	return nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if alias, ok := csvAliases[name]; ok {
			name = alias
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns
}

func field(columns map[string]int, record []string, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// decodeRow never fails: unparseable values mark the row invalid instead.
func (r *CSVTransactionRepository) decodeRow(columns map[string]int, record []string, line int) storedRow {
	tx := models.Transaction{
		Owner:       field(columns, record, "owner"),
		Concept:     field(columns, record, "concept"),
		Category:    field(columns, record, "category"),
		Subcategory: field(columns, record, "subcategory"),
		Method:      field(columns, record, "method"),
	}
	if tx.Owner == "" {
		tx.Owner = r.legacyOwner
	}
	tx.ID = field(columns, record, "id")
	if tx.ID == "" {
		tx.ID = uuid.Derive(strconv.Itoa(line) + "|" + strings.Join(record, "|"))
	}

	rawDate := field(columns, record, "date")
	date, err := parseStoredDate(rawDate)
	if err != nil {
		tx.Invalid = true
	} else {
		tx.Date = date
		rawDate = date.String()
	}

	rawAmount := field(columns, record, "amount")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || amount.IsNegative() {
		tx.Invalid = true
	} else {
		tx.Amount = amount
	}
	return storedRow{tx: tx, rawDate: rawDate, rawAmount: rawAmount}
}

// parseStoredDate accepts plain dates and the timestamp form older ledgers
// wrote ("2025-01-03 00:00:00").
func parseStoredDate(s string) (models.Date, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	return models.ParseDate(s)
}

func encodeRow(row storedRow) []string {
	tx := row.tx
	return []string{
		tx.ID,
		tx.Owner,
		row.rawDate,
		tx.Concept,
		tx.Category,
		tx.Subcategory,
		row.rawAmount,
		tx.Method,
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
