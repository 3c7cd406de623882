package catalog

import "time"

const (
	GeneralCategory    = "general"
	GeneralServiceName = "General Services"
	DefaultHourlyRate  = 500
)

type Category struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Category    string    `bson:"category" json:"category"`
	Slug        string    `bson:"slug" json:"slug"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Defaults is the catalog a fresh deployment starts with.
var Defaults = []Category{
	{Name: "Domestic Cleaning", Category: "cleaning", Description: "Home cleaning services"},
	{Name: "Plumbing", Category: "plumbing", Description: "Pipe and fixture repairs"},
	{Name: "Electrical Work", Category: "electrical", Description: "Wiring and electrical installations"},
	{Name: "Pest Control", Category: "pest_control", Description: "Insect and rodent removal"},
	{Name: "Appliance Installation", Category: "appliance", Description: "Installation of household appliances"},
	{Name: "General Maintenance", Category: "maintenance", Description: "General home repair services"},
	{Name: "Online Services", Category: "online_services", Description: "Remote and digital services"},
}

// Listing is one bookable (provider, service) pair.
type Listing struct {
	ProviderID  string  `json:"provider_id"`
	CompanyName string  `json:"company_name"`
	OwnerName   string  `json:"owner_name"`
	ServiceType string  `json:"service_type"`
	ServiceName string  `json:"service_name"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	HourlyRate  float64 `json:"hourly_rate"`
	Rating      float64 `json:"rating"`
}
