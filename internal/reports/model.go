package reports

import (
	"time"

	"ayudabesh-backend/internal/bookings"
)

type DashboardStats struct {
	TotalBookings    int64            `json:"total_bookings"`
	BookingsByStatus map[string]int64 `json:"bookings_by_status"`
	TotalRevenue     float64          `json:"total_revenue"`
	TodayBookings    int64            `json:"today_bookings"`
	TodayRevenue     float64          `json:"today_revenue"`
	MonthBookings    int64            `json:"month_bookings"`
	MonthRevenue     float64          `json:"month_revenue"`
	ActiveProviders  int64            `json:"active_providers"`
	PendingProviders int64            `json:"pending_providers"`
	TotalCustomers   int64            `json:"total_customers"`
	OpenDisputes     int64            `json:"open_disputes"`
	TotalDisputes    int64            `json:"total_disputes"`
	AverageRating    float64          `json:"average_rating"`
	TotalRatings     int64            `json:"total_ratings"`
}

type DailyBooking struct {
	bookings.Booking
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ProviderName    string `json:"provider_name"`
	ProviderCompany string `json:"provider_company"`
}

type DailyReport struct {
	Date            string           `json:"date"`
	TotalBookings   int              `json:"total_bookings"`
	TotalRevenue    float64          `json:"total_revenue"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
	Bookings        []DailyBooking   `json:"bookings"`
}

type ProviderActivity struct {
	ProviderID      string     `json:"provider_id"`
	ProviderName    string     `json:"provider_name"`
	CompanyName     string     `json:"company_name"`
	Location        string     `json:"location"`
	IsVerified      bool       `json:"is_verified"`
	VerifiedAt      *time.Time `json:"verified_at"`
	TotalJobs       int64      `json:"total_jobs"`
	PendingJobs     int64      `json:"pending_jobs"`
	AcceptedJobs    int64      `json:"accepted_jobs"`
	TotalEarnings   float64    `json:"total_earnings"`
	AvgRating       float64    `json:"avg_rating"`
	TotalRatings    int64      `json:"total_ratings"`
	ServicesOffered []string   `json:"services_offered"`
}

type ActivityReport struct {
	TotalProviders    int                `json:"total_providers"`
	VerifiedProviders int                `json:"verified_providers"`
	Providers         []ProviderActivity `json:"providers"`
}

type RecentBooking struct {
	BookingID   string    `json:"booking_id"`
	ServiceType string    `json:"service_type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Price       float64   `json:"price"`
}

type CustomerHistory struct {
	CustomerID        string          `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	Email             string          `json:"email"`
	TotalBookings     int             `json:"total_bookings"`
	CompletedBookings int             `json:"completed_bookings"`
	PendingBookings   int             `json:"pending_bookings"`
	TotalSpent        float64         `json:"total_spent"`
	UniqueProviders   int             `json:"unique_providers"`
	ReviewsGiven      int64           `json:"reviews_given"`
	RegistrationDate  *time.Time      `json:"registration_date"`
	RecentBookings    []RecentBooking `json:"recent_bookings"`
}

type CustomerReport struct {
	TotalCustomers int               `json:"total_customers"`
	Customers      []CustomerHistory `json:"customers"`
}

type Earning struct {
	BookingID    string     `json:"booking_id"`
	ServiceType  string     `json:"service_type"`
	CustomerName string     `json:"customer_name"`
	Amount       float64    `json:"amount"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type ProviderEarnings struct {
	ProviderID        string    `json:"provider_id"`
	ProviderName      string    `json:"provider_name"`
	CompanyName       string    `json:"company_name"`
	Location          string    `json:"location"`
	TotalEarnings     float64   `json:"total_earnings"`
	TotalJobs         int       `json:"total_jobs"`
	AvgEarningsPerJob float64   `json:"avg_earnings_per_job"`
	EarningsBreakdown []Earning `json:"earnings_breakdown"`
}

type EarningsReport struct {
	TotalProviders        int                `json:"total_providers"`
	TotalPlatformEarnings float64            `json:"total_platform_earnings"`
	Providers             []ProviderEarnings `json:"providers"`
}

// RangeQuery narrows a report to one party and a YYYY-MM-DD window, both ends inclusive.
type RangeQuery struct {
	PartyID   string
	StartDate string
	EndDate   string
}
