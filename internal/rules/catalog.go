package rules

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Catalog resolves line items to service categories.
type Catalog struct {
	codes    map[string]string
	keywords []categoryKeywords
}

type categoryKeywords struct {
	category string
	words    []string
}

// NewCatalog builds a catalog from a service-code table and per-category
// description keywords. Keys, categories and keywords are folded so matching
// ignores case and Unicode presentation.
func NewCatalog(serviceCodes map[string]string, keywords map[string][]string) *Catalog {
	c := &Catalog{codes: make(map[string]string, len(serviceCodes))}
	for code, category := range serviceCodes {
		c.codes[fold(code)] = fold(category)
	}

	categories := make([]string, 0, len(keywords))
	for category := range keywords {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		ck := categoryKeywords{category: fold(category)}
		for _, w := range keywords[category] {
			if w = fold(w); w != "" {
				ck.words = append(ck.words, w)
			}
		}
		c.keywords = append(c.keywords, ck)
	}
	return c
}

// Resolve maps a line item to its category. The bool is false when the item
// cannot be classified: an unknown service code, or a description that
// matches no keyword.
func (c *Catalog) Resolve(item domain.LineItem) (category string, known bool) {
	if code := fold(item.ServiceCode); code != "" {
		category, known = c.codes[code]
		return category, known
	}
	desc := fold(item.Description)
	for _, ck := range c.keywords {
		for _, w := range ck.words {
			if strings.Contains(desc, w) {
				return ck.category, true
			}
		}
	}
	return "", false
}

// fold applies NFKC normalisation and Unicode case folding. Casers carry
// state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}
