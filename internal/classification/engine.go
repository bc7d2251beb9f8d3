// Package classification suggests categories for transactions from keyword
// rules, falling back to descriptions previously confirmed by the user.
package classification

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/textnorm"
)

const (
	// LearningThreshold is the rule confidence below which learned descriptions are consulted.
	LearningThreshold = 0.7
	multiKeywordBonus = 0.1
	exactMatchBonus   = 0.1
)

// Source tells where a categorization came from.
type Source string

// Categorization sources.
const (
	SourceNone     Source = "none"
	SourceRule     Source = "rule"
	SourceLearning Source = "learning"
)

// Result is the engine's best guess for a transaction.
// CategoryID is empty and Confidence is 0 when nothing matched.
type Result struct {
	CategoryID      string
	RuleID          string
	Source          Source
	MatchedKeywords []string
	Confidence      float64
}

// Stats summarises the engine state.
type Stats struct {
	TotalRules      int
	ActiveRules     int
	LearningEntries int
}

// Engine classifies transaction descriptions.
//
// An Engine is meant for a single owner: it holds no locks, so callers sharing
// one across goroutines must serialise access themselves.
type Engine struct {
	compiled map[string]*regexp.Regexp
	learning *learningMemory
	rules    []model.ClassificationRule
}

type engineOptions struct {
	fragments FragmentTable
	templates []RuleTemplate
}

// Option configures NewEngine.
type Option func(*engineOptions)

// WithFragmentTable replaces the table used to bind templates to categories.
func WithFragmentTable(table FragmentTable) Option {
	return func(o *engineOptions) {
		o.fragments = table
	}
}

// WithTemplates replaces the built-in rule catalogue.
func WithTemplates(templates []RuleTemplate) Option {
	return func(o *engineOptions) {
		o.templates = templates
	}
}

// NewEngine creates an engine whose built-in rules are bound to the given categories.
// Templates that resolve to no category are dropped.
func NewEngine(categories []model.Category, opts ...Option) *Engine {
	o := engineOptions{
		fragments: DefaultFragmentTable(),
		templates: DefaultTemplates(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		compiled: make(map[string]*regexp.Regexp),
		learning: newLearningMemory(),
	}

	binder := newBinder(categories, o.fragments)
	for _, tmpl := range o.templates {
		categoryID, ok := binder.resolve(tmpl)
		if !ok {
			slog.Debug("Dropping rule template without a matching category", "template", tmpl.ID)
			continue
		}

		e.rules = append(e.rules, model.ClassificationRule{
			ID:         BuiltinRulePrefix + tmpl.ID,
			Keywords:   normalizeKeywords(tmpl.Keywords),
			CategoryID: categoryID,
			Confidence: tmpl.Confidence,
			Active:     true,
		})
	}

	slog.Debug("Classification engine ready",
		"categories", len(categories),
		"builtin_rules", len(e.rules),
		"templates", len(o.templates))

	return e
}

// Categorize suggests a category for a description. When existingCategoryID is
// not empty the description is also recorded as confirmed for that category,
// after the suggestion has been computed.
// Rules with day-of-month conditions never match here since no date is known.
func (e *Engine) Categorize(description string, amount decimal.Decimal, existingCategoryID string) Result {
	return e.categorize(subject{
		description: textnorm.Normalize(description),
		amount:      amount,
	}, existingCategoryID)
}

// CategorizeTransaction is Categorize for a full transaction record, using its
// date for rule conditions and its category as the confirmed one.
func (e *Engine) CategorizeTransaction(txn model.Transaction) Result {
	return e.categorize(subject{
		description: textnorm.Normalize(txn.Description),
		amount:      txn.Amount,
		date:        txn.Date,
	}, txn.CategoryID)
}

// Learn records that description was confirmed as categoryID.
func (e *Engine) Learn(description, categoryID string) {
	if categoryID == "" {
		return
	}
	e.learning.observe(textnorm.Normalize(description), categoryID)
}

func (e *Engine) categorize(s subject, existingCategoryID string) Result {
	best := Result{Source: SourceNone, MatchedKeywords: []string{}}

	for _, rule := range e.rules {
		if !rule.Active {
			continue
		}

		matched := matchKeywords(rule.Keywords, s.description)
		if len(matched) == 0 || !e.conditionsMet(rule.Conditions, s) {
			continue
		}

		confidence := ruleConfidence(rule, matched, s.description)
		if confidence > best.Confidence {
			best = Result{
				CategoryID:      rule.CategoryID,
				RuleID:          rule.ID,
				Source:          SourceRule,
				MatchedKeywords: matched,
				Confidence:      confidence,
			}
		}
	}

	if best.Confidence < LearningThreshold {
		if match, ok := e.learning.bestMatch(s.description); ok {
			confidence := clampConfidence(match.similarity * learningWeight)
			if confidence > best.Confidence {
				slog.Debug("Using learned categorization",
					"category", match.categoryID,
					"similarity", match.similarity,
					"observations", match.count)
				best = Result{
					CategoryID:      match.categoryID,
					Source:          SourceLearning,
					MatchedKeywords: []string{fmt.Sprintf("aprendizado: %.0f%% similar", match.similarity*100)},
					Confidence:      confidence,
				}
			}
		}
	}

	if existingCategoryID != "" {
		e.learning.observe(s.description, existingCategoryID)
	}

	return best
}

// matchKeywords returns the keywords that occur in the normalized description.
func matchKeywords(keywords []string, description string) []string {
	if description == "" {
		return nil
	}

	var matched []string
	for _, kw := range keywords {
		if kw != "" && strings.Contains(description, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func ruleConfidence(rule model.ClassificationRule, matched []string, description string) float64 {
	confidence := rule.Confidence + multiKeywordBonus*float64(len(matched)-1)

	for _, kw := range matched {
		if kw == description {
			confidence += exactMatchBonus
			break
		}
	}

	return clampConfidence(confidence)
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		n := textnorm.Normalize(kw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
