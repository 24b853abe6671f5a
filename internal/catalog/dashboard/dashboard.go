// Package dashboard computes the summary statistics shown on the dashboard.
package dashboard

import (
	"encoding/json"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/shopspring/decimal"
)

// RecentCount is the number of trailing products listed as recent.
const RecentCount = 6

// Stats summarises a product collection.
type Stats struct {
	TotalProducts   int               `json:"totalProducts"`
	AveragePrice    decimal.Decimal   `json:"averagePrice"`
	CategoriesCount int               `json:"categoriesCount"`
	HighestRating   decimal.Decimal   `json:"highestRating"`
	RecentProducts  []catalog.Product `json:"recentProducts"`
}

// Compute derives Stats from products.
// An empty collection has no average; ErrEmptyCatalog is returned instead.
func Compute(products []catalog.Product) (Stats, error) {
	if len(products) == 0 {
		return Stats{RecentProducts: []catalog.Product{}}, catalogerrors.ErrEmptyCatalog
	}

	sum := decimal.Zero
	highest := decimal.Zero
	categories := make(map[string]struct{}, len(products))
	for _, p := range products {
		sum = sum.Add(decimal.NewFromFloat(p.Price))
		highest = decimal.Max(highest, decimal.NewFromFloat(p.Rate()))
		categories[p.Category] = struct{}{}
	}

	start := max(len(products)-RecentCount, 0)
	recent := make([]catalog.Product, len(products)-start)
	copy(recent, products[start:])

	return Stats{
		TotalProducts:   len(products),
		AveragePrice:    sum.Div(decimal.NewFromInt(int64(len(products)))).Round(2),
		CategoriesCount: len(categories),
		HighestRating:   highest.Round(1),
		RecentProducts:  recent,
	}, nil
}

// MarshalJSON renders the decimal fields as JSON numbers with fixed precision.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalProducts   int               `json:"totalProducts"`
		AveragePrice    json.Number       `json:"averagePrice"`
		CategoriesCount int               `json:"categoriesCount"`
		HighestRating   json.Number       `json:"highestRating"`
		RecentProducts  []catalog.Product `json:"recentProducts"`
	}{
		TotalProducts:   s.TotalProducts,
		AveragePrice:    json.Number(s.AveragePrice.StringFixed(2)),
		CategoriesCount: s.CategoriesCount,
		HighestRating:   json.Number(s.HighestRating.StringFixed(1)),
		RecentProducts:  s.RecentProducts,
	})
}
