package listing

import "github.com/seif-emam/deveolp-network/internal/catalog"

// State is the user-controlled part of the list view.
type State struct {
	SearchTerm string `json:"searchTerm"`
	Category   string `json:"category"`
	Page       int    `json:"page"`
}

// NewState returns the initial state: no filters, first page.
func NewState() State {
	return State{Page: 1}
}

// WithSearch changes the search term and resets to the first page.
func (s State) WithSearch(term string) State {
	s.SearchTerm = term
	s.Page = 1
	return s
}

// WithCategory changes the category filter and resets to the first page.
func (s State) WithCategory(category string) State {
	s.Category = category
	s.Page = 1
	return s
}

// GoToPage moves to page when it lies in [1, totalPages].
// Otherwise the state is returned unchanged and ok is false.
func (s State) GoToPage(page, totalPages int) (next State, ok bool) {
	if page < 1 || page > totalPages {
		return s, false
	}
	s.Page = page
	return s, true
}

// Next moves one page forward if possible.
func (s State) Next(totalPages int) State {
	next, _ := s.GoToPage(s.Page+1, totalPages)
	return next
}

// Previous moves one page back if possible.
func (s State) Previous() State {
	if s.Page > 1 {
		s.Page--
	}
	return s
}

// View is everything the list page renders.
type View struct {
	State         State             `json:"state"`
	Products      []catalog.Product `json:"products"`
	FilteredCount int               `json:"filteredCount"`
	TotalPages    int               `json:"totalPages"`
	PageSize      int               `json:"pageSize"`
	Categories    []string          `json:"categories"`
}

// HasPrevious reports whether a previous page exists.
func (v View) HasPrevious() bool { return v.State.Page > 1 }

// HasNext reports whether a next page exists.
func (v View) HasNext() bool { return v.State.Page < v.TotalPages }

// Pages lists the page numbers 1..TotalPages.
func (v View) Pages() []int {
	out := make([]int, v.TotalPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Build derives the view for products under state.
func Build(products []catalog.Product, state State, pageSize int) View {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	filtered := Filter(products, state.SearchTerm, state.Category)
	return View{
		State:         state,
		Products:      Paginate(filtered, state.Page, pageSize),
		FilteredCount: len(filtered),
		TotalPages:    TotalPages(len(filtered), pageSize),
		PageSize:      pageSize,
		Categories:    Categories(products),
	}
}

// BuildPage applies the search and category filters, then moves to page.
// When page is out of range the first page is returned and ok is false.
func BuildPage(products []catalog.Product, searchTerm, category string, page, pageSize int) (view View, ok bool) {
	state := NewState().WithSearch(searchTerm).WithCategory(category)
	view = Build(products, state, pageSize)
	if page == 1 {
		return view, true
	}
	next, ok := state.GoToPage(page, view.TotalPages)
	if !ok {
		return view, false
	}
	return Build(products, next, pageSize), true
}
