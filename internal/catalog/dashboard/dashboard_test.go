package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withPrices(prices ...float64) []catalog.Product {
	out := make([]catalog.Product, 0, len(prices))
	for i, price := range prices {
		out = append(out, catalog.Product{ID: i + 1, Price: price, Category: "c"})
	}
	return out
}

func TestCompute_AveragePrice(t *testing.T) {
	testCases := []struct {
		name     string
		prices   []float64
		expected string
	}{
		{name: "exact", prices: []float64{10, 20, 30}, expected: "20.00"},
		{name: "rounded to two decimals", prices: []float64{10, 10, 10.01}, expected: "10.00"},
		{name: "rounds half up", prices: []float64{1.005}, expected: "1.01"},
		{name: "typical catalog prices", prices: []float64{109.95, 22.3, 55.99}, expected: "62.75"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			stats, err := Compute(withPrices(tc.prices...))

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stats.AveragePrice.StringFixed(2))
		})
	}
}

func TestCompute_CategoriesCount(t *testing.T) {
	// given
	products := []catalog.Product{{Category: "a"}, {Category: "b"}, {Category: "a"}}

	// when
	stats, err := Compute(products)

	// then
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CategoriesCount)
	assert.Equal(t, 3, stats.TotalProducts)
}

func TestCompute_HighestRating(t *testing.T) {
	testCases := []struct {
		name     string
		ratings  []*catalog.Rating
		expected string
	}{
		{name: "max rounded to one decimal", ratings: []*catalog.Rating{{Rate: 3.9}, {Rate: 4.74}, {Rate: 2}}, expected: "4.7"},
		{name: "absent ratings count as zero", ratings: []*catalog.Rating{nil, {Rate: 1.25}}, expected: "1.3"},
		{name: "no ratings at all", ratings: []*catalog.Rating{nil, nil}, expected: "0.0"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			products := make([]catalog.Product, 0, len(tc.ratings))
			for _, r := range tc.ratings {
				products = append(products, catalog.Product{Price: 1, Rating: r})
			}

			// when
			stats, err := Compute(products)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, stats.HighestRating.StringFixed(1))
		})
	}
}

func TestCompute_RecentProducts(t *testing.T) {
	testCases := []struct {
		name     string
		count    int
		expected []int
	}{
		{name: "fewer than six", count: 3, expected: []int{1, 2, 3}},
		{name: "exactly six", count: 6, expected: []int{1, 2, 3, 4, 5, 6}},
		{name: "last six in collection order", count: 20, expected: []int{15, 16, 17, 18, 19, 20}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			prices := make([]float64, tc.count)
			for i := range prices {
				prices[i] = 1
			}

			// when
			stats, err := Compute(withPrices(prices...))

			// then
			require.NoError(t, err)
			got := make([]int, 0, len(stats.RecentProducts))
			for _, p := range stats.RecentProducts {
				got = append(got, p.ID)
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCompute_EmptyCollection(t *testing.T) {
	// when
	stats, err := Compute(nil)

	// then
	require.ErrorIs(t, err, catalogerrors.ErrEmptyCatalog)
	assert.Zero(t, stats.TotalProducts)
	assert.Empty(t, stats.RecentProducts)
}

func TestStats_MarshalJSON(t *testing.T) {
	// given
	stats, err := Compute(withPrices(10, 20, 30))
	require.NoError(t, err)

	// when
	b, err := json.Marshal(stats)

	// then
	require.NoError(t, err)
	assert.Contains(t, string(b), `"averagePrice":20.00`)
	assert.Contains(t, string(b), `"highestRating":0.0`)
	assert.Contains(t, string(b), `"categoriesCount":1`)
}
