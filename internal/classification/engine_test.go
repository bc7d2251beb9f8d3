package classification

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
)

func defaultCategories() []model.Category {
	return []model.Category{
		{ID: "food-id", Name: "Alimentação", Type: model.CategoryTypeExpense},
		{ID: "transport-id", Name: "Transporte", Type: model.CategoryTypeExpense},
		{ID: "housing-id", Name: "Moradia", Type: model.CategoryTypeExpense},
		{ID: "health-id", Name: "Saúde", Type: model.CategoryTypeExpense},
		{ID: "education-id", Name: "Educação", Type: model.CategoryTypeExpense},
		{ID: "leisure-id", Name: "Lazer", Type: model.CategoryTypeExpense},
		{ID: "shopping-id", Name: "Compras", Type: model.CategoryTypeExpense},
		{ID: "salary-id", Name: "Salário", Type: model.CategoryTypeIncome},
		{ID: "freelance-id", Name: "Freelance", Type: model.CategoryTypeIncome},
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewEngine_BindsTemplates(t *testing.T) {
	tests := []struct {
		want       map[string]string
		name       string
		categories []model.Category
	}{
		{
			name:       "full portuguese category set",
			categories: defaultCategories(),
			want: map[string]string{
				"builtin_food":          "food-id",
				"builtin_transport":     "transport-id",
				"builtin_housing":       "housing-id",
				"builtin_health":        "health-id",
				"builtin_education":     "education-id",
				"builtin_entertainment": "leisure-id",
				"builtin_shopping":      "shopping-id",
				"builtin_salary":        "salary-id",
				"builtin_freelance":     "freelance-id",
			},
		},
		{
			name:       "templates without a category are dropped",
			categories: []model.Category{{ID: "t", Name: "Transporte"}},
			want:       map[string]string{"builtin_transport": "t"},
		},
		{
			name:       "fallback fragments bind when no primary fragment matches",
			categories: []model.Category{{ID: "car", Name: "Carro"}},
			want:       map[string]string{"builtin_transport": "car"},
		},
		{
			name:       "primary fragment needs keyword overlap",
			categories: []model.Category{{ID: "home", Name: "Contas da Casa"}},
			want:       map[string]string{"builtin_housing": "home"},
		},
		{
			name:       "no categories",
			categories: nil,
			want:       map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.categories)

			got := make(map[string]string)
			for _, r := range e.Rules() {
				assert.True(t, IsBuiltinRuleID(r.ID))
				assert.True(t, r.Active)
				got[r.ID] = r.CategoryID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEngine_CustomFragmentTable(t *testing.T) {
	table := FragmentTable{
		Primary: []FragmentRule{{Fragment: "Groceries", Keywords: []string{"supermercado"}}},
		Fallback: map[string][]string{
			"transport": {"travel"},
		},
	}
	categories := []model.Category{
		{ID: "g", Name: "Groceries"},
		{ID: "tr", Name: "Travel"},
		{ID: "c", Name: "Compras"},
	}

	e := NewEngine(categories, WithFragmentTable(table))

	rules := e.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "builtin_food", rules[0].ID)
	assert.Equal(t, "g", rules[0].CategoryID)
	assert.Equal(t, "builtin_transport", rules[1].ID)
	assert.Equal(t, "tr", rules[1].CategoryID)
}

func TestNewEngine_CustomTemplates(t *testing.T) {
	templates := []RuleTemplate{
		{ID: "pets", Name: "Pets", Keywords: []string{"Petz", "Cobasi"}, Confidence: 0.9},
	}
	table := FragmentTable{Fallback: map[string][]string{"pets": {"pet"}}}

	e := NewEngine([]model.Category{{ID: "pet-id", Name: "Pet"}},
		WithTemplates(templates), WithFragmentTable(table))

	rules := e.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"petz", "cobasi"}, rules[0].Keywords)

	res := e.Categorize("COBASI LOJA 12", amount("-80"), "")
	assert.Equal(t, "pet-id", res.CategoryID)
	assert.Equal(t, "builtin_pets", res.RuleID)
}

func TestCategorize_Rules(t *testing.T) {
	e := NewEngine(defaultCategories())

	tests := []struct {
		name        string
		description string
		wantCat     string
		wantRule    string
		wantKW      []string
		wantConf    float64
	}{
		{
			name:        "single keyword",
			description: "Uber *trip 482",
			wantCat:     "transport-id",
			wantRule:    "builtin_transport",
			wantKW:      []string{"uber"},
			wantConf:    0.9,
		},
		{
			name:        "diacritics and case are ignored",
			description: "FARMÁCIA PAGUE MENOS",
			wantCat:     "health-id",
			wantRule:    "builtin_health",
			wantKW:      []string{"farmacia"},
			wantConf:    0.9,
		},
		{
			name:        "multi keyword bonus",
			description: "Drogaria consulta",
			wantCat:     "health-id",
			wantRule:    "builtin_health",
			wantKW:      []string{"drogaria", "consulta"},
			wantConf:    1.0,
		},
		{
			name:        "exact match bonus",
			description: "Netflix",
			wantCat:     "leisure-id",
			wantRule:    "builtin_entertainment",
			wantKW:      []string{"netflix"},
			wantConf:    0.95,
		},
		{
			name:        "confidence is clamped",
			description: "Posto Ipiranga gasolina",
			wantCat:     "transport-id",
			wantRule:    "builtin_transport",
			wantKW:      []string{"gasolina", "posto", "ipiranga"},
			wantConf:    1.0,
		},
		{
			name:        "higher base confidence wins",
			description: "Amazon Prime Video",
			wantCat:     "leisure-id",
			wantRule:    "builtin_entertainment",
			wantKW:      []string{"amazon prime"},
			wantConf:    0.85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Categorize(tt.description, amount("-23.50"), "")

			assert.Equal(t, tt.wantCat, res.CategoryID)
			assert.Equal(t, tt.wantRule, res.RuleID)
			assert.Equal(t, SourceRule, res.Source)
			assert.Equal(t, tt.wantKW, res.MatchedKeywords)
			assert.InDelta(t, tt.wantConf, res.Confidence, 1e-9)
		})
	}
}

func TestCategorize_NoMatch(t *testing.T) {
	e := NewEngine(defaultCategories())

	for _, desc := range []string{"", "   ", "XPTO 0001"} {
		res := e.Categorize(desc, decimal.Zero, "")
		assert.Empty(t, res.CategoryID)
		assert.Empty(t, res.RuleID)
		assert.Equal(t, SourceNone, res.Source)
		assert.Zero(t, res.Confidence)
		assert.NotNil(t, res.MatchedKeywords)
		assert.Empty(t, res.MatchedKeywords)
	}
}

func TestCategorize_TieKeepsFirstRule(t *testing.T) {
	e := NewEngine(nil)

	first, err := e.AddCustomRule(model.ClassificationRule{Keywords: []string{"ticket"}, CategoryID: "a", Confidence: 0.8, Active: true})
	require.NoError(t, err)
	_, err = e.AddCustomRule(model.ClassificationRule{Keywords: []string{"ticket"}, CategoryID: "b", Confidence: 0.8, Active: true})
	require.NoError(t, err)

	res := e.Categorize("Ticket restaurante", amount("30"), "")
	assert.Equal(t, "a", res.CategoryID)
	assert.Equal(t, first.ID, res.RuleID)
}

func TestCategorize_LearningFeedbackLoop(t *testing.T) {
	e := NewEngine(nil)

	first := e.Categorize("Padaria Silva", amount("12"), "food-id")
	assert.Equal(t, SourceNone, first.Source)
	assert.Equal(t, 1, e.Stats().LearningEntries)

	res := e.Categorize("Padaria Silva 2", amount("11"), "")
	assert.Equal(t, "food-id", res.CategoryID)
	assert.Equal(t, SourceLearning, res.Source)
	assert.Empty(t, res.RuleID)
	assert.Greater(t, res.Confidence, 0.0)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, []string{"aprendizado: 100% similar"}, res.MatchedKeywords)
}

func TestCategorize_LearningRanking(t *testing.T) {
	e := NewEngine(nil)

	e.Learn("Posto Shell Centro", "fuel")
	e.Learn("Posto Shell Centro", "fuel")
	e.Learn("Posto Shell Centro Sul", "other")

	// "posto shell centro" vs query: 3/3 = 1.0 x2 observations; the other: 3/4 x1.
	res := e.Categorize("Posto Shell Centro", decimal.Zero, "")
	assert.Equal(t, "fuel", res.CategoryID)

	// Below the similarity floor nothing is suggested.
	res = e.Categorize("Shell Norte Bairro Cidade", decimal.Zero, "")
	assert.Equal(t, SourceNone, res.Source)
}

func TestCategorize_LearningOnlyBelowThreshold(t *testing.T) {
	tests := []struct {
		name       string
		wantSource Source
		wantCat    string
		ruleConf   float64
	}{
		{name: "weak rule is replaced by learning", ruleConf: 0.5, wantSource: SourceLearning, wantCat: "learned"},
		{name: "strong rule skips learning", ruleConf: 0.75, wantSource: SourceRule, wantCat: "rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil)
			_, err := e.AddCustomRule(model.ClassificationRule{
				Keywords: []string{"padaria"}, CategoryID: "rule", Confidence: tt.ruleConf, Active: true,
			})
			require.NoError(t, err)

			e.Learn("Padaria Estrela", "learned")

			res := e.Categorize("Padaria Estrela", decimal.Zero, "")
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantCat, res.CategoryID)
		})
	}
}

func TestCategorize_RecordsExistingCategoryAfterSuggesting(t *testing.T) {
	e := NewEngine(nil)

	res := e.Categorize("Academia Fit", decimal.Zero, "gym")
	assert.Equal(t, SourceNone, res.Source, "the observation must not influence the call that records it")

	res = e.Categorize("Academia Fit", decimal.Zero, "")
	assert.Equal(t, "gym", res.CategoryID)
}

func TestEngine_LearningIsPerInstance(t *testing.T) {
	a := NewEngine(nil)
	b := NewEngine(nil)

	a.Learn("Padaria Silva", "food-id")

	assert.Equal(t, SourceLearning, a.Categorize("Padaria Silva", decimal.Zero, "").Source)
	assert.Equal(t, SourceNone, b.Categorize("Padaria Silva", decimal.Zero, "").Source)
	assert.Zero(t, b.Stats().LearningEntries)
}

func TestCategorize_Deterministic(t *testing.T) {
	descriptions := []string{"Uber *trip", "Supermercado Extra", "Netflix", "Padaria", "??", "Salario Empresa X"}

	a := NewEngine(defaultCategories())
	b := NewEngine(defaultCategories())

	for _, d := range descriptions {
		assert.Equal(t, a.Categorize(d, amount("10"), ""), b.Categorize(d, amount("10"), ""), d)
	}
}

func TestCategorize_ConfidenceBounds(t *testing.T) {
	e := NewEngine(defaultCategories())
	_, err := e.AddCustomRule(model.ClassificationRule{
		Keywords: []string{"a", "b", "c", "d", "e"}, CategoryID: "x", Confidence: 1, Active: true,
	})
	require.NoError(t, err)

	inputs := []string{"", "a", "abcde", "supermercado mercado padaria", "ÁÉÍÓÚ", "\x00\x01", "uber uber uber"}
	for _, in := range inputs {
		res := e.Categorize(in, decimal.Zero, "")
		assert.GreaterOrEqual(t, res.Confidence, 0.0, in)
		assert.LessOrEqual(t, res.Confidence, 1.0, in)
	}
}

func TestCategorize_Conditions(t *testing.T) {
	earlyMonth := model.DayCondition{MaxDay: 10}
	bigAmount := model.AmountCondition{Op: model.AmountGreaterEqual, Value: amount("1000")}
	low, high := amount("10"), amount("50")
	band := model.AmountCondition{Op: model.AmountRange, Min: &low, Max: &high}

	tests := []struct {
		date       time.Time
		name       string
		desc       string
		amount     string
		conditions model.Conditions
		want       bool
	}{
		{name: "amount threshold met", desc: "Aluguel apto", amount: "-1500", conditions: model.Conditions{bigAmount}, want: true},
		{name: "amount threshold not met", desc: "Aluguel apto", amount: "-500", conditions: model.Conditions{bigAmount}},
		{name: "amount range", desc: "Aluguel bike", amount: "25", conditions: model.Conditions{band}, want: true},
		{name: "amount outside range", desc: "Aluguel bike", amount: "60", conditions: model.Conditions{band}},
		{name: "day window", desc: "Aluguel", amount: "1", date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), conditions: model.Conditions{earlyMonth}, want: true},
		{name: "day outside window", desc: "Aluguel", amount: "1", date: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), conditions: model.Conditions{earlyMonth}},
		{name: "day unknown", desc: "Aluguel", amount: "1", conditions: model.Conditions{earlyMonth}},
		{name: "text required", desc: "Aluguel via PIX", amount: "1", conditions: model.Conditions{model.TextCondition{Pattern: "pix"}}, want: true},
		{name: "text excluded", desc: "Aluguel boleto", amount: "1", conditions: model.Conditions{model.TextCondition{Pattern: "Boleto", Exclude: true}}},
		{name: "regex", desc: "Aluguel 03/2024", amount: "1", conditions: model.Conditions{model.TextCondition{Pattern: `\d{2}/\d{4}`, Regex: true}}, want: true},
		{name: "all conditions must hold", desc: "Aluguel via pix", amount: "-500", conditions: model.Conditions{model.TextCondition{Pattern: "pix"}, bigAmount}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil)
			_, err := e.AddCustomRule(model.ClassificationRule{
				Keywords:   []string{"aluguel"},
				CategoryID: "rent",
				Confidence: 0.9,
				Active:     true,
				Conditions: tt.conditions,
			})
			require.NoError(t, err)

			res := e.CategorizeTransaction(model.Transaction{
				Description: tt.desc,
				Amount:      amount(tt.amount),
				Date:        tt.date,
			})

			if tt.want {
				assert.Equal(t, "rent", res.CategoryID)
			} else {
				assert.Empty(t, res.CategoryID)
			}
		})
	}
}

func TestCategorizeTransaction_LearnsFromCategory(t *testing.T) {
	e := NewEngine(nil)

	e.CategorizeTransaction(model.Transaction{Description: "Barbearia Central", CategoryID: "care"})
	res := e.CategorizeTransaction(model.Transaction{Description: "Barbearia Central"})

	assert.Equal(t, "care", res.CategoryID)
	assert.Equal(t, SourceLearning, res.Source)
}
