// Package catalog holds the product model shared by the catalog packages.
package catalog

// Product is a catalog entry as served by the remote API.
// ID is assigned by the remote API and never changes.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      *Rating `json:"rating,omitempty"`
}

// Rating is read-only; the remote API may omit it.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Rate returns the rating value, or 0 when the product has no rating.
func (p Product) Rate() float64 {
	if p.Rating == nil {
		return 0
	}
	return p.Rating.Rate
}

// ProductUpdate is the replace-style write view of a Product.
// Every field is sent; the id travels in the resource path.
type ProductUpdate struct {
	ID          *int    `json:"id,omitempty"`
	Title       string  `json:"title"       validate:"required,min=3"`
	Price       float64 `json:"price"       validate:"gt=0"`
	Description string  `json:"description" validate:"required,min=10"`
	Category    string  `json:"category"    validate:"required"`
	Image       string  `json:"image"       validate:"required"`
}

// ToUpdate builds the write view carrying every current field of p.
func (p Product) ToUpdate() ProductUpdate {
	return ProductUpdate{
		Title:       p.Title,
		Price:       p.Price,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
	}
}
