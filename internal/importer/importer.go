// Package importer parses bank-statement CSV files into transactions.
// A file is accepted whole or rejected whole: any missing column or
// unreadable row fails the import with the offending line number.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/models"
)

// MaxRows caps the number of rows in one import.
const MaxRows = 10000

// columnAliases maps accepted header spellings onto column names.
var columnAliases = map[string]string{
	"date":         "date",
	"fecha":        "date",
	"concept":      "concept",
	"concepto":     "concept",
	"description":  "concept",
	"descripcion":  "concept",
	"descripción":  "concept",
	"amount":       "amount",
	"monto":        "amount",
	"importe":      "amount",
	"category":     "category",
	"categoria":    "category",
	"categoría":    "category",
	"subcategory":  "subcategory",
	"subcategoria": "subcategory",
	"method":       "method",
	"metodo":       "method",
	"método":       "method",
}

var requiredColumns = []string{"date", "concept", "amount"}

// dateLayouts are tried in order.
var dateLayouts = []string{
	models.DateLayout,
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Row is one parsed line of an import file.
type Row struct {
	Line        int
	Date        models.Date
	Concept     string
	Amount      decimal.Decimal
	Category    string
	Subcategory string
	Method      string
}

// Transaction converts the row into an unsaved transaction for owner.
// Rows without a category are filed under Otros; rows without a method are
// marked Imported.
func (r Row) Transaction(owner string) models.Transaction {
	tx := models.Transaction{
		Owner:       owner,
		Date:        r.Date,
		Concept:     r.Concept,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Amount:      r.Amount,
		Method:      r.Method,
	}
	if tx.Category == "" {
		tx.Category = models.CategoryOther
	}
	if tx.Method == "" {
		tx.Method = models.MethodImported
	}
	return tx
}

// Parse reads a CSV import. The delimiter is a comma unless the header line
// only contains semicolons.
func Parse(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Errorf("read import: %w", err))
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.Comma = sniffDelimiter(data)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "import file is empty")
	}
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("line 1: %v", err))
	}

	columns := mapColumns(header)
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation,
			fmt.Sprintf("import file is missing required columns: %s", strings.Join(missing, ", ")))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("line %d: %v", parseErr.StartLine, parseErr.Err))
			}
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err)
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		row, err := parseRow(columns, record, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if len(rows) > MaxRows {
			return nil, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("import file has more than %d rows", MaxRows))
		}
	}

	if len(rows) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrValidation, "import file contains no transactions")
	}
	return rows, nil
}

func parseRow(columns map[string]int, record []string, line int) (Row, error) {
	fail := func(format string, args ...any) (Row, error) {
		return Row{}, apperrors.WithMessage(apperrors.ErrValidation, fmt.Sprintf("line %d: ", line)+fmt.Sprintf(format, args...))
	}

	rawDate := value(columns, record, "date")
	date, err := ParseDate(rawDate)
	if err != nil {
		return fail("invalid date %q", rawDate)
	}

	concept := value(columns, record, "concept")
	if concept == "" {
		return fail("concept is required")
	}
	if len([]rune(concept)) > models.MaxConceptLength {
		return fail("concept is too long (max %d characters)", models.MaxConceptLength)
	}

	rawAmount := value(columns, record, "amount")
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return fail("invalid amount %q", rawAmount)
	}
	if !amount.IsPositive() {
		return fail("amount must be greater than zero")
	}
	if !models.FitsMoneyScale(amount) {
		return fail("amount %q has more than %d decimal places", rawAmount, models.MoneyScale)
	}

	subcategory := value(columns, record, "subcategory")
	if len([]rune(subcategory)) > models.MaxSubcategoryLength {
		return fail("subcategory is too long (max %d characters)", models.MaxSubcategoryLength)
	}
	method := value(columns, record, "method")
	if len([]rune(method)) > models.MaxMethodLength {
		return fail("method is too long (max %d characters)", models.MaxMethodLength)
	}

	return Row{
		Line:        line,
		Date:        date,
		Concept:     concept,
		Amount:      amount,
		Category:    value(columns, record, "category"),
		Subcategory: subcategory,
		Method:      method,
	}, nil
}

// ParseDate accepts ISO dates, day-first slashed dates and RFC 3339 timestamps.
func ParseDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount accepts a dot or comma decimal separator, an optional
// currency sign and thousands separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}
	return decimal.NewFromString(s)
}

func sniffDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.IndexByte(first, ';') >= 0 && bytes.IndexByte(first, ',') < 0 {
		return ';'
	}
	return ','
}

func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return columns
}

func value(columns map[string]int, record []string, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
