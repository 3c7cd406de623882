package users

import (
	"time"

	"ayudabesh-backend/internal/auth"
)

const (
	defaultServiceRadiusKm = 50.0
	minPasswordLength      = 6
)

type User struct {
	ID              string   `bson:"_id,omitempty" json:"id"`
	Username        string   `bson:"username" json:"username"`
	Email           string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone           string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Password        string   `bson:"password" json:"-"`
	FullName        string   `bson:"full_name" json:"fullName"`
	Role            string   `bson:"role" json:"role"`
	IsVerified      bool     `bson:"is_verified" json:"is_verified"`
	IsRejected      bool     `bson:"is_rejected" json:"is_rejected"`
	RejectionReason string   `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ServicesOffered []string `bson:"services_offered,omitempty" json:"services_offered,omitempty"`
	Location        string   `bson:"location,omitempty" json:"location,omitempty"`
	Description     string   `bson:"description,omitempty" json:"description,omitempty"`
	HourlyRate      float64  `bson:"hourly_rate,omitempty" json:"hourly_rate,omitempty"`
	ServiceRadius   float64  `bson:"service_radius,omitempty" json:"service_radius,omitempty"`
	Equipment       string   `bson:"equipment,omitempty" json:"equipment,omitempty"`
	Latitude        *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude       *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Rating          float64  `bson:"rating" json:"rating"`

	VerifiedAt *time.Time `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	RejectedAt *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`

	AccountDisabled bool       `bson:"account_disabled" json:"account_disabled"`
	DisabledAt      *time.Time `bson:"disabled_at,omitempty" json:"disabled_at,omitempty"`
	DisabledUntil   *time.Time `bson:"disabled_until,omitempty" json:"disabled_until,omitempty"`
	DisabledReason  string     `bson:"disabled_reason,omitempty" json:"disabled_reason,omitempty"`
	DisabledBy      string     `bson:"disabled_by,omitempty" json:"disabled_by,omitempty"`

	DeletionRequested       bool       `bson:"deletion_requested" json:"deletion_requested"`
	DeletionReason          string     `bson:"deletion_reason,omitempty" json:"deletion_reason,omitempty"`
	DeletionRequestedAt     *time.Time `bson:"deletion_requested_at,omitempty" json:"deletion_requested_at,omitempty"`
	DeletionRejected        bool       `bson:"deletion_rejected,omitempty" json:"deletion_rejected,omitempty"`
	DeletionRejectionReason string     `bson:"deletion_rejection_reason,omitempty" json:"deletion_rejection_reason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsDisabled reports whether the account is locked at the given instant.
// An expired temporary disable no longer counts.
func (u User) IsDisabled(now time.Time) bool {
	if !u.AccountDisabled {
		return false
	}
	return u.DisabledUntil == nil || u.DisabledUntil.After(now)
}

// Bookable reports whether customers may book this provider right now.
func (u User) Bookable(now time.Time) bool {
	return u.Role == auth.RoleProvider && u.IsVerified && !u.IsRejected && !u.IsDisabled(now)
}

func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type SignupRequest struct {
	Username        string   `json:"username" validate:"required,min=3,max=50"`
	Email           string   `json:"email" validate:"required,email"`
	Password        string   `json:"password" validate:"required,min=6"`
	FullName        string   `json:"fullName" validate:"required"`
	Phone           string   `json:"phone" validate:"required,phone"`
	Role            string   `json:"role" validate:"required,oneof=customer provider"`
	ServicesOffered []string `json:"services_offered"`
	Location        string   `json:"location"`
	Description     string   `json:"description"`
	HourlyRate      float64  `json:"hourly_rate" validate:"gte=0"`
	ServiceRadius   float64  `json:"service_radius" validate:"gte=0"`
	Equipment       string   `json:"equipment"`
	Latitude        *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type AdminSignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone" validate:"required,phone"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=customer provider admin"`
}

type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=customer provider admin"`
}

type ResetPasswordRequest struct {
	ResetToken       string `json:"reset_token" validate:"required"`
	VerificationCode string `json:"verification_code" validate:"required,len=6,numeric"`
	NewPassword      string `json:"new_password" validate:"required,min=6"`
}

type ForgotPasswordResult struct {
	Message          string   `json:"message"`
	ResetToken       string   `json:"reset_token"`
	IdentifierMasked string   `json:"identifier_masked"`
	SentVia          []string `json:"sent_via"`
	VerificationCode string   `json:"verification_code,omitempty"`
}

// ProfileUpdate carries only the fields the caller sent.
type ProfileUpdate struct {
	FullName        *string   `json:"fullName" validate:"omitempty,min=1"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	Phone           *string   `json:"phone" validate:"omitempty,phone"`
	Password        *string   `json:"password" validate:"omitempty,min=6"`
	Location        *string   `json:"location"`
	Description     *string   `json:"description"`
	ServicesOffered *[]string `json:"services"`
	HourlyRate      *float64  `json:"hourly_rate" validate:"omitempty,gte=0"`
	ServiceRadius   *float64  `json:"service_radius" validate:"omitempty,gte=0"`
	Equipment       *string   `json:"equipment"`
	Latitude        *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64  `json:"longitude" validate:"omitempty,longitude"`
}

type RejectProviderRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type DisableRequest struct {
	DurationDays int    `json:"duration_days" validate:"gte=0"`
	Reason       string `json:"reason"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type ProviderSearch struct {
	Service   string
	Location  string
	Latitude  *float64
	Longitude *float64
	RadiusKm  float64
}

type ProviderResult struct {
	User
	DistanceKm *float64 `json:"distance_km"`
}

type VerifiedProvider struct {
	User
	CompletedJobs int64 `json:"completed_jobs"`
}
