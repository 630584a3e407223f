package ai

import (
	"context"
	"strings"

	"misa/internal/models"
)

// KeywordRule files concepts containing one of Keywords under the first
// candidate whose name matches one of Categories.
type KeywordRule struct {
	Categories  []string
	Keywords    []string
	Subcategory string
}

// KeywordClassifier is a deterministic Classifier used when no language
// model is configured and as a test double.
type KeywordClassifier struct {
	rules []KeywordRule
}

// NewKeywordClassifier creates a classifier with the default rules.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{rules: defaultKeywordRules()}
}

// NewKeywordClassifierWithRules creates a classifier with custom rules.
func NewKeywordClassifierWithRules(rules []KeywordRule) *KeywordClassifier {
	return &KeywordClassifier{rules: rules}
}

// Classify implements Classifier. A concept that names a candidate directly
// is filed there; otherwise the first matching rule wins. Nothing matched
// yields Otros/General.
func (k *KeywordClassifier) Classify(ctx context.Context, concept string, candidates []string) (Classification, error) {
	if err := ctx.Err(); err != nil {
		return Classification{}, err
	}
	text := strings.ToLower(concept)

	for _, rule := range k.rules {
		if !containsAny(text, rule.Keywords) {
			continue
		}
		for _, name := range rule.Categories {
			if c, ok := matchCandidate(name, candidates); ok && c != models.CategoryOther {
				return Classification{Category: c, Subcategory: rule.Subcategory}, nil
			}
		}
	}

	for _, c := range candidates {
		if c != "" && strings.Contains(text, strings.ToLower(c)) {
			return Classification{Category: c, Subcategory: models.SubcategoryGeneral}, nil
		}
	}

	return Classification{Category: models.CategoryOther, Subcategory: models.SubcategoryGeneral}, nil
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func defaultKeywordRules() []KeywordRule {
	transport := []string{"Transporte", "Transport", "Transportation"}
	food := []string{"Alimentos", "Food", "Comida", "Groceries"}
	fun := []string{"Diversion", "Diversión", "Entertainment", "Ocio"}
	services := []string{"Servicios", "Services", "Utilities"}
	rent := []string{"Renta", "Rent", "Housing", "Vivienda"}

	return []KeywordRule{
		{Categories: transport, Keywords: []string{"uber", "didi", "cabify", "taxi", "ride"}, Subcategory: "Taxi"},
		{Categories: transport, Keywords: []string{"gasolina", "gas station", "pemex", "fuel"}, Subcategory: "Gasolina"},
		{Categories: transport, Keywords: []string{"metro", "metrobus", "bus", "camion", "tren"}, Subcategory: "Transporte publico"},
		{Categories: food, Keywords: []string{"super", "walmart", "soriana", "chedraui", "costco", "oxxo", "grocer"}, Subcategory: "Supermercado"},
		{Categories: food, Keywords: []string{"restaurant", "tacos", "cafe", "coffee", "starbucks", "pizza", "rappi"}, Subcategory: "Restaurante"},
		{Categories: fun, Keywords: []string{"cine", "cinepolis", "cinemex", "netflix", "spotify", "concierto", "bar"}, Subcategory: "Entretenimiento"},
		{Categories: services, Keywords: []string{"cfe", "luz", "agua", "internet", "telmex", "izzi", "telcel", "phone"}, Subcategory: "Servicios basicos"},
		{Categories: rent, Keywords: []string{"renta", "rent", "alquiler", "mantenimiento"}, Subcategory: "Vivienda"},
	}
}
