package bookings

import "time"

const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	PaymentFaceToFace = "face_to_face"
)

// transitions is the whole lifecycle graph. Terminal states have no entry.
var transitions = map[string][]string{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// sourcesOf lists every state with an edge into to.
func sourcesOf(to string) []string {
	out := make([]string, 0, 2)
	for _, from := range []string{StatusPending, StatusAccepted} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

func IsActive(status string) bool {
	return status == StatusPending || status == StatusAccepted
}

var allStatuses = []string{StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled}

// activeStatuses is every status that still blocks account deletion and
// allows a price change.
var activeStatuses = statusesWhere(IsActive)

func statusesWhere(keep func(string) bool) []string {
	out := make([]string, 0, len(allStatuses))
	for _, s := range allStatuses {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

type Booking struct {
	ID                  string     `bson:"_id,omitempty" json:"id"`
	CustomerID          string     `bson:"customer_id" json:"customer_id"`
	CustomerName        string     `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerEmail       string     `bson:"customer_email,omitempty" json:"customer_email,omitempty"`
	CustomerPhone       string     `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	ProviderID          string     `bson:"provider_id" json:"provider_id"`
	ServiceType         string     `bson:"service_type" json:"service_type"`
	BookingTime         time.Time  `bson:"booking_time" json:"booking_time"`
	ServiceAddress      string     `bson:"service_address,omitempty" json:"service_address,omitempty"`
	SpecialInstructions string     `bson:"special_instructions,omitempty" json:"special_instructions,omitempty"`
	Status              string     `bson:"status" json:"status"`
	Price               float64    `bson:"price" json:"price"`
	FinalPrice          *float64   `bson:"final_price" json:"final_price"`
	PriceUpdatedAt      *time.Time `bson:"price_updated_at,omitempty" json:"price_updated_at,omitempty"`
	PaymentMethod       string     `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	Rating              *int       `bson:"rating,omitempty" json:"rating,omitempty"`
	Review              string     `bson:"review,omitempty" json:"review,omitempty"`
	RejectionReason     string     `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	CancellationReason  string     `bson:"cancellation_reason,omitempty" json:"cancellation_reason,omitempty"`
	CancelledBy         string     `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	CreatedAt           time.Time  `bson:"created_at" json:"created_at"`
	AcceptedAt          *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	RejectedAt          *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	CompletedAt         *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CancelledAt         *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
	RatedAt             *time.Time `bson:"rated_at,omitempty" json:"rated_at,omitempty"`
}

// Amount is the settled price when the provider set one, else the quote.
func (b Booking) Amount() float64 {
	if b.FinalPrice != nil {
		return *b.FinalPrice
	}
	return b.Price
}

type CreateRequest struct {
	ProviderID          string   `json:"provider_id" validate:"required"`
	ServiceType         string   `json:"service_type" validate:"required,max=100"`
	BookingTime         string   `json:"booking_time" validate:"required,iso8601"`
	Price               *float64 `json:"price" validate:"required,gte=0"`
	ServiceAddress      string   `json:"service_address" validate:"max=500"`
	SpecialInstructions string   `json:"special_instructions" validate:"max=1000"`
	CustomerName        string   `json:"customer_name" validate:"max=200"`
	CustomerEmail       string   `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone       string   `json:"customer_phone" validate:"omitempty,phone"`
}

type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type PriceRequest struct {
	FinalPrice *float64 `json:"final_price" validate:"required,gte=0"`
}

type RateRequest struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Review string `json:"review" validate:"max=1000"`
}

type RateResult struct {
	Message       string  `json:"message"`
	AverageRating float64 `json:"average_rating"`
	ReviewAdded   bool    `json:"review_added"`
}

// View is a booking enriched with the counterpart's display fields.
type View struct {
	Booking
	ProviderName        string `json:"provider_name,omitempty"`
	ProviderCompanyName string `json:"provider_company_name,omitempty"`
	ProviderOwnerName   string `json:"provider_owner_name,omitempty"`
}

const (
	TransactionPaymentOut = "payment_out"
	TransactionPaymentIn  = "payment_in"
)

type Transaction struct {
	TransactionID   string    `json:"transaction_id"`
	BookingID       string    `json:"booking_id"`
	Type            string    `json:"type"`
	Amount          float64   `json:"amount"`
	Status          string    `json:"status"`
	PaymentMethod   string    `json:"payment_method"`
	ServiceType     string    `json:"service_type"`
	CounterpartName string    `json:"counterpart_name"`
	Date            time.Time `json:"date"`
}
