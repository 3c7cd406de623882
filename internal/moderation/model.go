package moderation

import "time"

const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"

	ReportPending = "pending"
	ReportChecked = "checked"

	ReportTypeService = "service_report"
)

type Response struct {
	Text        string    `bson:"text" json:"text"`
	RespondedBy string    `bson:"responded_by" json:"responded_by"`
	RespondedAt time.Time `bson:"responded_at" json:"responded_at"`
}

type Dispute struct {
	ID              string     `bson:"_id,omitempty" json:"id"`
	BookingID       string     `bson:"booking_id" json:"booking_id"`
	CustomerID      string     `bson:"customer_id" json:"customer_id"`
	ProviderID      string     `bson:"provider_id" json:"provider_id"`
	Description     string     `bson:"description" json:"description"`
	Status          string     `bson:"status" json:"status"`
	Responses       []Response `bson:"responses" json:"responses"`
	ResolutionNotes string     `bson:"resolution_notes,omitempty" json:"resolution_notes,omitempty"`
	ResolvedBy      string     `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
}

type Report struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	BookingID   string     `bson:"booking_id" json:"booking_id"`
	CustomerID  string     `bson:"customer_id" json:"customer_id"`
	ProviderID  string     `bson:"provider_id" json:"provider_id"`
	Description string     `bson:"description" json:"description"`
	Details     string     `bson:"details" json:"details"`
	Type        string     `bson:"type" json:"type"`
	Status      string     `bson:"status" json:"status"`
	Checked     bool       `bson:"checked" json:"checked"`
	CheckNotes  string     `bson:"check_notes,omitempty" json:"check_notes,omitempty"`
	CheckedBy   string     `bson:"checked_by,omitempty" json:"checked_by,omitempty"`
	CheckedAt   *time.Time `bson:"checked_at,omitempty" json:"checked_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
}

// Parties carries the display names of both sides of a case.
type Parties struct {
	CustomerName        string `json:"customer_name"`
	CustomerEmail       string `json:"customer_email"`
	ProviderName        string `json:"provider_name"`
	ProviderCompanyName string `json:"provider_company_name"`
	ProviderOwnerName   string `json:"provider_owner_name"`
}

type BookingDetails struct {
	ServiceType    string    `json:"service_type"`
	BookingTime    time.Time `json:"booking_time"`
	ServiceAddress string    `json:"service_address"`
	Price          float64   `json:"price"`
	FinalPrice     *float64  `json:"final_price"`
}

type DisputeView struct {
	Dispute
	Parties
	BookingDetails *BookingDetails `json:"booking_details,omitempty"`
}

type ReportView struct {
	Report
	Parties
	BookingDetails *BookingDetails `json:"booking_details,omitempty"`
}

type FileDisputeRequest struct {
	BookingID   string `json:"booking_id" validate:"required"`
	Description string `json:"description" validate:"required,max=2000"`
}

type FileReportRequest struct {
	BookingID   string `json:"booking_id" validate:"required"`
	Description string `json:"description" validate:"max=2000"`
	Details     string `json:"details" validate:"max=2000"`
	Type        string `json:"type" validate:"max=50"`
}

type RespondRequest struct {
	Response string `json:"response" validate:"max=2000"`
}

type ResolveRequest struct {
	ResolutionNotes string `json:"resolution_notes" validate:"max=2000"`
}

type CheckRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}
