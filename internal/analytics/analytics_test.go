package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"misa/internal/models"
	"misa/internal/testutil"
)

func tx(date models.Date, category, method, amount string) models.Transaction {
	t := testutil.NewTestTransaction("alice", date, category, amount)
	t.Method = method
	return t
}

func day(d int) models.Date { return models.NewDate(2025, time.March, d) }

var march2025 = models.Period{Year: 2025, Month: time.March}

func TestFilterPeriod(t *testing.T) {
	broken := tx(day(2), "Food", "TDC", "10")
	broken.Invalid = true

	txs := []models.Transaction{
		tx(day(1), "Food", "TDC", "10"),
		tx(models.NewDate(2025, time.February, 28), "Food", "TDC", "10"),
		tx(models.NewDate(2024, time.March, 1), "Food", "TDC", "10"),
		broken,
		tx(day(31), "Rent", "BBVA", "10"),
	}

	got := FilterPeriod(txs, march2025)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions in period, got %d", len(got))
	}
}

func TestAggregateSeedsBudgetCategories(t *testing.T) {
	cfg := models.BudgetConfiguration{Budgets: models.Budgets{
		{Name: "Rent", Limit: decimal.NewFromInt(3000)},
		{Name: "Food", Limit: decimal.NewFromInt(1000)},
	}}
	txs := []models.Transaction{
		tx(day(1), "Rent", "BBVA", "2500"),
		tx(day(2), "Rent", "BBVA", "100"),
	}

	totals := ByCategory(txs, cfg)
	if len(totals) != 2 {
		t.Fatalf("expected 2 totals, got %d", len(totals))
	}
	if totals[0].Key != "Rent" || totals[1].Key != "Food" {
		t.Errorf("expected seed order Rent, Food, got %s, %s", totals[0].Key, totals[1].Key)
	}
	testutil.AssertDecimal(t, "Rent", totals[0].Amount, "2600")
	testutil.AssertDecimal(t, "Food", totals[1].Amount, "0")

	cmp := CompareBudget(txs, cfg)
	food := cmp.Envelopes[1]
	if food.Category != "Food" {
		t.Fatalf("expected Food envelope, got %s", food.Category)
	}
	testutil.AssertDecimal(t, "Food actual", food.Actual, "0")
	testutil.AssertDecimal(t, "Food delta", food.Delta, "1000")
}

func TestAggregateExtraKeysSorted(t *testing.T) {
	txs := []models.Transaction{
		tx(day(1), "Zoo", "Vales", "1"),
		tx(day(1), "Art", "Efectivo", "2"),
		tx(day(1), "Art", "Efectivo", "0"),
	}

	totals := Aggregate(txs, func(t models.Transaction) string { return t.Category }, []string{"Rent"})
	keys := []string{totals[0].Key, totals[1].Key, totals[2].Key}
	if keys[0] != "Rent" || keys[1] != "Art" || keys[2] != "Zoo" {
		t.Errorf("unexpected order %v", keys)
	}
	if totals[1].Count != 2 {
		t.Errorf("zero amount must still be counted, got count %d", totals[1].Count)
	}

	methods := ByMethod(txs)
	if len(methods) != 2 || methods[0].Key != "Efectivo" {
		t.Errorf("unexpected method totals %+v", methods)
	}
}

func TestCompareBudget(t *testing.T) {
	cfg := models.BudgetConfiguration{
		NetIncome: decimal.NewFromInt(5000),
		Budgets: models.Budgets{
			{Name: "Rent", Limit: decimal.NewFromInt(3000)},
			{Name: "Food", Limit: decimal.NewFromInt(1000)},
		},
	}
	txs := []models.Transaction{
		tx(day(1), "Rent", "BBVA", "3000"),
		tx(day(2), "Food", "TDC", "200"),
		tx(day(3), models.CategoryOther, "TDC", "50"),
	}

	cmp := CompareBudget(txs, cfg)
	testutil.AssertDecimal(t, "total budget", cmp.TotalBudget, "4000")
	testutil.AssertDecimal(t, "total spent", cmp.TotalSpent, "3250")
	testutil.AssertDecimal(t, "percent used", cmp.PercentUsed, "81.25")
	if cmp.Usage != UsageNearLimit {
		t.Errorf("expected near_limit, got %s", cmp.Usage)
	}
	if len(cmp.Unbudgeted) != 1 || cmp.Unbudgeted[0].Key != models.CategoryOther {
		t.Errorf("expected Otros as unbudgeted, got %+v", cmp.Unbudgeted)
	}
	testutil.AssertDecimal(t, "cashflow", Cashflow(cfg.NetIncome, cmp.TotalSpent), "1750")
}

func TestPercentUsed(t *testing.T) {
	tests := []struct {
		name   string
		spent  string
		budget string
		want   string
	}{
		{"zero_budget", "500", "0", "0"},
		{"nothing_spent", "0", "1000", "0"},
		{"quarter", "250", "1000", "25"},
		{"over", "1500", "1000", "150"},
		{"fraction", "1", "3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spent, budget := testutil.Dec(tt.spent), testutil.Dec(tt.budget)
			got := PercentUsed(spent, budget)
			if budget.IsZero() {
				testutil.AssertDecimal(t, "percent", got, "0")
				return
			}
			want := spent.Mul(decimal.NewFromInt(100)).Div(budget)
			if !got.Equal(want) {
				t.Errorf("expected %s, got %s", want, got)
			}
			if tt.want != "" {
				testutil.AssertDecimal(t, "percent", got, tt.want)
			}
		})
	}
}

func TestUsage(t *testing.T) {
	tests := []struct {
		percent string
		want    UsageLevel
	}{
		{"0", UsageOnTrack},
		{"79.99", UsageOnTrack},
		{"80", UsageNearLimit},
		{"99.99", UsageNearLimit},
		{"100", UsageOverBudget},
		{"250", UsageOverBudget},
	}
	for _, tt := range tests {
		if got := Usage(testutil.Dec(tt.percent)); got != tt.want {
			t.Errorf("Usage(%s) = %s, want %s", tt.percent, got, tt.want)
		}
	}
}

func TestProjectPastMonthIsExact(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	totals := []string{"0", "1000", "1234.57", "99.99", "10000.01"}
	periods := []models.Period{
		{Year: 2025, Month: time.February},
		{Year: 2025, Month: time.April},
		{Year: 2024, Month: time.February},
		{Year: 2024, Month: time.December},
	}

	for _, p := range periods {
		for _, total := range totals {
			got := Project(testutil.Dec(total), p, now)
			if got.ElapsedDays != got.DaysInMonth {
				t.Errorf("%s: expected fully elapsed month, got %d/%d", p, got.ElapsedDays, got.DaysInMonth)
			}
			testutil.AssertDecimal(t, p.String()+" projected", got.Projected, total)
		}
	}

	if d := Project(decimal.Zero, models.Period{Year: 2024, Month: time.February}, now).DaysInMonth; d != 29 {
		t.Errorf("expected 29 days in leap February, got %d", d)
	}
}

func TestProjectCurrentMonth(t *testing.T) {
	now := time.Date(2025, time.March, 10, 18, 30, 0, 0, time.UTC)
	total := testutil.Dec("1000")

	got := Project(total, march2025, now)
	if got.ElapsedDays != 10 || got.DaysInMonth != 31 {
		t.Fatalf("expected 10/31 days, got %d/%d", got.ElapsedDays, got.DaysInMonth)
	}
	want := total.Div(decimal.NewFromInt(10)).Mul(decimal.NewFromInt(31))
	if !got.Projected.Equal(want) {
		t.Errorf("expected projection %s, got %s", want, got.Projected)
	}
	testutil.AssertDecimal(t, "projection", got.Projected, "3100")
	testutil.AssertDecimal(t, "average daily", got.AverageDaily, "100")
}

func TestProjectCurrentMonthUnevenDivision(t *testing.T) {
	now := time.Date(2025, time.March, 7, 9, 0, 0, 0, time.UTC)
	total := testutil.Dec("100")

	got := Project(total, march2025, now)
	want := total.Div(decimal.NewFromInt(7)).Mul(decimal.NewFromInt(31))
	if !got.Projected.Equal(want) {
		t.Errorf("expected projection %s, got %s", want, got.Projected)
	}
}

func TestProjectLastDayOfCurrentMonth(t *testing.T) {
	now := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)

	got := Project(testutil.Dec("333.33"), march2025, now)
	testutil.AssertDecimal(t, "projection", got.Projected, "333.33")
}

func TestAlert(t *testing.T) {
	income := testutil.Dec("10000")
	budget := testutil.Dec("8000")

	tests := []struct {
		projected string
		want      AlertLevel
	}{
		{"10000.01", AlertCritical},
		{"10000", AlertWarning},
		{"8000.01", AlertWarning},
		{"8000", AlertHealthy},
		{"0", AlertHealthy},
	}
	for _, tt := range tests {
		if got := Alert(testutil.Dec(tt.projected), income, budget); got != tt.want {
			t.Errorf("Alert(%s) = %s, want %s", tt.projected, got, tt.want)
		}
	}
}

func TestCumulativeCurve(t *testing.T) {
	txs := []models.Transaction{
		tx(day(5), "Food", "TDC", "30"),
		tx(day(1), "Food", "TDC", "10"),
		tx(day(5), "Rent", "TDC", "20"),
		tx(day(3), "Food", "TDC", "0"),
	}

	curve := CumulativeCurve(txs, testutil.Dec("500"))
	if len(curve.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(curve.Points))
	}
	wantDates := []string{"2025-03-01", "2025-03-03", "2025-03-05"}
	wantCum := []string{"10", "10", "60"}
	for i, p := range curve.Points {
		if p.Date.String() != wantDates[i] {
			t.Errorf("point %d: expected date %s, got %s", i, wantDates[i], p.Date)
		}
		testutil.AssertDecimal(t, "cumulative", p.Cumulative, wantCum[i])
	}
	testutil.AssertDecimal(t, "budget line", curve.BudgetLine, "500")
}

func TestDetectAntExpenses(t *testing.T) {
	t.Run("small_purchases", func(t *testing.T) {
		txs := []models.Transaction{
			tx(day(1), "Food", "TDC", "40"),
			tx(day(2), "Food", "TDC", "80"),
			tx(day(3), "Food", "TDC", "500"),
			tx(day(4), "Food", "TDC", "30"),
		}

		got := DetectAntExpenses(txs, decimal.NewFromInt(100))
		if got.Count != 3 {
			t.Errorf("expected count 3, got %d", got.Count)
		}
		testutil.AssertDecimal(t, "sum", got.Sum, "150")
		amounts := map[string]bool{}
		for _, a := range got.Transactions {
			amounts[a.Amount.String()] = true
		}
		for _, want := range []string{"40", "80", "30"} {
			if !amounts[want] {
				t.Errorf("expected %s in result", want)
			}
		}
	})

	t.Run("threshold_is_exclusive", func(t *testing.T) {
		got := DetectAntExpenses([]models.Transaction{tx(day(1), "Food", "TDC", "100")}, decimal.NewFromInt(100))
		if !got.Clean() {
			t.Errorf("expected no ant expenses, got %d", got.Count)
		}
	})

	t.Run("empty_is_clean", func(t *testing.T) {
		got := DetectAntExpenses(nil, decimal.NewFromInt(100))
		if !got.Clean() || !got.Sum.IsZero() || got.Transactions == nil {
			t.Errorf("expected clean result, got %+v", got)
		}
	})
}

func TestBuildReport(t *testing.T) {
	cfg := models.BudgetConfiguration{
		NetIncome: decimal.NewFromInt(3000),
		Budgets: models.Budgets{
			{Name: "Rent", Limit: decimal.NewFromInt(2000)},
			{Name: "Food", Limit: decimal.NewFromInt(500)},
		},
	}
	broken := tx(day(4), "Food", "TDC", "1")
	broken.Invalid = true
	txs := []models.Transaction{
		tx(day(1), "Rent", "BBVA", "2000"),
		tx(day(2), "Food", "Efectivo", "50"),
		tx(models.NewDate(2025, time.February, 2), "Food", "Efectivo", "999"),
		broken,
	}
	now := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)

	r := BuildReport(txs, cfg, march2025, now, DefaultAntThreshold)
	if r.Transactions != 2 {
		t.Errorf("expected 2 transactions in period, got %d", r.Transactions)
	}
	if r.Invalid != 1 {
		t.Errorf("expected 1 invalid row, got %d", r.Invalid)
	}
	testutil.AssertDecimal(t, "spent", r.Budget.TotalSpent, "2050")
	testutil.AssertDecimal(t, "disposable", r.Disposable, "950")
	testutil.AssertDecimal(t, "projected", r.Projection.Projected, "2050")
	if r.Alert != AlertHealthy {
		t.Errorf("expected healthy, got %s", r.Alert)
	}
	if r.AntExpenses.Count != 1 {
		t.Errorf("expected 1 ant expense, got %d", r.AntExpenses.Count)
	}
	if len(r.Distribution) != 2 {
		t.Errorf("expected 2 distribution slices, got %d", len(r.Distribution))
	}
	if len(r.Curve.Points) != 2 {
		t.Errorf("expected 2 curve points, got %d", len(r.Curve.Points))
	}
}
