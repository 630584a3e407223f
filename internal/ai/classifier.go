// Package ai wraps the external language-model capabilities: classifying a
// transaction concept into a budget category and answering questions about
// a set of transactions. Callers only use Categorizer and Assistant, which
// never return provider errors.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"misa/internal/logger"
	"misa/internal/models"
)

// DefaultTimeout bounds a provider call when none is configured.
const DefaultTimeout = 10 * time.Second

// Classification is a category/subcategory pair for one concept.
type Classification struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// Fallback is the classification recorded when the provider fails.
var Fallback = Classification{Category: models.CategoryOther, Subcategory: models.SubcategoryAIError}

// Classifier is implemented by classification providers.
type Classifier interface {
	Classify(ctx context.Context, concept string, candidates []string) (Classification, error)
}

// Categorizer applies a timeout and result checks to a Classifier and turns
// every failure into Fallback.
type Categorizer struct {
	provider Classifier
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewCategorizer creates a Categorizer. A nil provider always falls back.
func NewCategorizer(provider Classifier, timeout time.Duration) *Categorizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Categorizer{provider: provider, timeout: timeout, log: logger.Named("categorizer")}
}

// Label returns the classification to record for a new transaction. A
// non-empty manual category wins without consulting the provider.
func (c *Categorizer) Label(ctx context.Context, concept, manualCategory string, candidates []string) Classification {
	if manual := strings.TrimSpace(manualCategory); manual != "" {
		return Classification{Category: manual, Subcategory: models.SubcategoryManual}
	}
	return c.Classify(ctx, concept, candidates)
}

// Classify asks the provider for a classification of concept among
// candidates. It never fails.
func (c *Categorizer) Classify(ctx context.Context, concept string, candidates []string) Classification {
	if c == nil || c.provider == nil {
		return Fallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		result Classification
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		res, err := c.provider.Classify(ctx, concept, candidates)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		c.log.Warnw("classification failed, using fallback", "error", out.err)
		return Fallback
	}

	result, err := conform(out.result, candidates)
	if err != nil {
		c.log.Warnw("non-conforming classification, using fallback", "category", out.result.Category, "error", err)
		return Fallback
	}
	return result
}

// conform checks a provider result against candidates and normalizes it.
func conform(res Classification, candidates []string) (Classification, error) {
	category := strings.TrimSpace(res.Category)
	canonical, ok := matchCandidate(category, candidates)
	if !ok {
		return Classification{}, fmt.Errorf("category %q is not a candidate", category)
	}

	sub := strings.TrimSpace(res.Subcategory)
	if sub == "" {
		sub = models.SubcategoryGeneral
	}
	if utf8.RuneCountInString(sub) > models.MaxSubcategoryLength {
		return Classification{}, fmt.Errorf("subcategory longer than %d characters", models.MaxSubcategoryLength)
	}
	return Classification{Category: canonical, Subcategory: sub}, nil
}

// matchCandidate resolves name against candidates and Otros, preferring an
// exact match and accepting a case-insensitive one.
func matchCandidate(name string, candidates []string) (string, bool) {
	if name == "" {
		return "", false
	}
	if name == models.CategoryOther {
		return name, true
	}
	for _, c := range candidates {
		if c == name {
			return c, true
		}
	}
	for _, c := range candidates {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	if strings.EqualFold(name, models.CategoryOther) {
		return models.CategoryOther, true
	}
	return "", false
}
