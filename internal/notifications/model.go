package notifications

import "time"

const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

func IsValidType(value string) bool {
	switch value {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError:
		return true
	}
	return false
}

type Notification struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Title     string    `bson:"title" json:"title"`
	Message   string    `bson:"message" json:"message"`
	Type      string    `bson:"type" json:"type"`
	Read      bool      `bson:"read" json:"read"`
	BookingID string    `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	Link      string    `bson:"link,omitempty" json:"link,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Message is what other components hand to the sink.
type Message struct {
	UserID    string
	Title     string
	Message   string
	Type      string
	BookingID string
	Link      string
}

type Recipient struct {
	Email string
	Name  string
}

type Inbox struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}
