package events

import (
	"encoding/json"
	"time"

	"github.com/seif-emam/deveolp-network/pkg/messaging"
)

// ProductUpdatedEvent announces that a product was replaced in the remote catalog.
type ProductUpdatedEvent struct {
	ProductID int       `json:"product_id"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	Category  string    `json:"category"`
	Image     string    `json:"image"`
	Origin    string    `json:"origin,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e ProductUpdatedEvent) Subject() string {
	return messaging.ProductsUpdatedSubject
}

func (e ProductUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
