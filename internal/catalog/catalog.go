package catalog

import "strings"

// Product is a catalog entry. Facets hold the category-specific
// filterable attributes; values are strings, string lists, or booleans
// depending on the facet.
type Product struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Price    float64        `json:"price"`
	Stock    int            `json:"stock"`
	Image    string         `json:"image"`
	Facets   map[string]any `json:"filters"`
}

// facetSchemas lists which facets each category exposes.
var facetSchemas = map[string][]string{
	"plant":     {"light", "watering", "careLevel", "indoorOutdoor", "petSafe"},
	"seed":      {"type", "indoorOutdoor", "careLevel"},
	"skincare":  {"skinType", "natural"},
	"accessory": {"material", "size", "indoorOutdoor"},
	"medicine":  {"form", "useCase", "natural", "system"},
}

// FacetSchema returns the facet names available for a category, nil for
// unknown categories or the all-categories view.
func FacetSchema(category string) []string {
	return facetSchemas[category]
}

// Selection is the current filter state of the catalog view.
type Selection struct {
	Query    string
	Category string
	Facets   map[string]string
}

// SetCategory switches the category and resets every facet selection to
// "any", so a facet from the old category never silently filters out
// the whole new category.
func (s *Selection) SetCategory(category string) {
	s.Category = category
	s.Facets = map[string]string{}
}

// SetFacet records a facet selection; an empty value means "any".
func (s *Selection) SetFacet(name, value string) {
	if s.Facets == nil {
		s.Facets = map[string]string{}
	}
	if value == "" {
		delete(s.Facets, name)
		return
	}
	s.Facets[name] = value
}

// Filter applies the selection to a product list, in order: free-text
// name match, category equality, then every active facet. The source
// list is never mutated.
func Filter(products []Product, sel Selection) []Product {
	query := strings.ToLower(strings.TrimSpace(sel.Query))

	var out []Product
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if sel.Category != "" && p.Category != sel.Category {
			continue
		}
		if !matchesFacets(p, sel.Facets) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesFacets(p Product, facets map[string]string) bool {
	for name, want := range facets {
		if want == "" {
			continue
		}
		if !matchesFacet(p.Facets[name], want) {
			return false
		}
	}
	return true
}

// matchesFacet compares one facet value against a selection. Booleans
// compare against "true"/"false", lists by containment, strings by
// equality. JSON-decoded products carry []any rather than []string.
func matchesFacet(value any, want string) bool {
	switch v := value.(type) {
	case bool:
		return v == (want == "true")
	case string:
		return v == want
	case []string:
		for _, item := range v {
			if item == want {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}
