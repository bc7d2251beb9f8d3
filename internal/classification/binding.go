package classification

import (
	"strings"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/model"
	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/textnorm"
)

type boundCategory struct {
	id   string
	name string // Normalized
}

// binder resolves rule templates to caller categories using a FragmentTable.
type binder struct {
	fallback   map[string][]string
	categories []boundCategory
	primary    []FragmentRule
}

func newBinder(categories []model.Category, table FragmentTable) *binder {
	b := &binder{
		categories: make([]boundCategory, 0, len(categories)),
		fallback:   make(map[string][]string, len(table.Fallback)),
	}

	for _, c := range categories {
		b.categories = append(b.categories, boundCategory{id: c.ID, name: textnorm.Normalize(c.Name)})
	}
	for _, rule := range table.Primary {
		fragment := textnorm.Normalize(rule.Fragment)
		if fragment == "" {
			continue
		}
		b.primary = append(b.primary, FragmentRule{Fragment: fragment, Keywords: normalizeKeywords(rule.Keywords)})
	}
	for templateID, fragments := range table.Fallback {
		b.fallback[templateID] = normalizeKeywords(fragments)
	}

	return b
}

// resolve returns the category a template binds to.
func (b *binder) resolve(tmpl RuleTemplate) (string, bool) {
	keywords := make(map[string]bool, len(tmpl.Keywords))
	for _, kw := range normalizeKeywords(tmpl.Keywords) {
		keywords[kw] = true
	}

	for _, cat := range b.categories {
		for _, rule := range b.primary {
			if strings.Contains(cat.name, rule.Fragment) && intersects(rule.Keywords, keywords) {
				return cat.id, true
			}
		}
	}

	for _, cat := range b.categories {
		for _, fragment := range b.fallback[tmpl.ID] {
			if strings.Contains(cat.name, fragment) {
				return cat.id, true
			}
		}
	}

	return "", false
}

func intersects(keywords []string, set map[string]bool) bool {
	for _, kw := range keywords {
		if set[kw] {
			return true
		}
	}
	return false
}
