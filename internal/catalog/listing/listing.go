// Package listing derives the filtered, paginated product list.
// Every function is pure: inputs are never modified and the same inputs
// always produce the same view.
package listing

import (
	"strings"

	"github.com/seif-emam/deveolp-network/internal/catalog"
)

// DefaultPageSize is the number of products shown per page.
const DefaultPageSize = 10

// Filter returns the products matching searchTerm and category.
// searchTerm matches a case-insensitive substring of the title or the description;
// category must match exactly. Empty criteria match everything.
func Filter(products []catalog.Product, searchTerm, category string) []catalog.Product {
	term := strings.ToLower(searchTerm)
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Paginate returns page (1-based) of filtered. Pages outside the collection are empty.
func Paginate(filtered []catalog.Product, page, pageSize int) []catalog.Product {
	if page < 1 || pageSize < 1 {
		return []catalog.Product{}
	}
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []catalog.Product{}
	}
	end := min(start+pageSize, len(filtered))
	out := make([]catalog.Product, end-start)
	copy(out, filtered[start:end])
	return out
}

// TotalPages is ceil(count/pageSize), 0 for an empty collection.
func TotalPages(count, pageSize int) int {
	if count <= 0 || pageSize < 1 {
		return 0
	}
	return (count + pageSize - 1) / pageSize
}

// Categories returns the distinct categories in first-seen order.
func Categories(products []catalog.Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}
