package reviews

import "time"

// Review is the per-booking projection of a customer rating.
type Review struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	BookingID    string    `bson:"booking_id" json:"booking_id"`
	ProviderID   string    `bson:"provider_id" json:"provider_id"`
	CustomerID   string    `bson:"customer_id" json:"customer_id"`
	CustomerName string    `bson:"customer_name" json:"customer_name"`
	ServiceType  string    `bson:"service_type,omitempty" json:"service_type,omitempty"`
	Rating       int       `bson:"rating" json:"rating"`
	Review       string    `bson:"review,omitempty" json:"review,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

type Stats struct {
	AverageRating float64          `json:"average_rating"`
	TotalReviews  int64            `json:"total_reviews"`
	Distribution  map[string]int64 `json:"rating_distribution"`
}

type ProviderReviews struct {
	ProviderID   string   `json:"provider_id"`
	ProviderName string   `json:"provider_name"`
	Stats
	Reviews []Review `json:"reviews"`
	Page    int64    `json:"page"`
	Limit   int64    `json:"limit"`
}

type MyReview struct {
	Review
	ProviderName string `json:"provider_name"`
}
