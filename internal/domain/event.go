package domain

import (
	"errors"
	"time"
)

type EventKind string

const (
	EventText     EventKind = "text"
	EventCommand  EventKind = "command"
	EventDocument EventKind = "document"
	EventCallback EventKind = "callback"
)

// ChatEvent is the transport-neutral view of an inbound chat update.
type ChatEvent struct {
	Kind      EventKind
	ChatID    int64
	MessageID int

	// UpdateID is the transport's delivery id; redeliveries repeat it.
	UpdateID int

	// Text holds the message body for text events.
	Text string

	// Command and Args are set for command events; Command has no leading slash.
	Command string
	Args    string

	// Caption and Document are set for document events.
	Caption  string
	Document *Document

	// CallbackID and CallbackData are set for callback events.
	CallbackID   string
	CallbackData string
}

// Document describes an uploaded file. Its bytes are fetched on demand.
type Document struct {
	FileID   string
	FileName string
	Size     int
}

// Intent is the classification of an uploaded document's caption.
type Intent string

const (
	IntentAnalyze Intent = "analyze"
	IntentModify  Intent = "modify"
)

// DeliveryFormat is how a pending result is handed back to the user.
type DeliveryFormat string

const (
	DeliverText DeliveryFormat = "text"
	DeliverFile DeliveryFormat = "file"
)

// PendingResult is a completed modification waiting for the user to pick a
// delivery format.
type PendingResult struct {
	Token     string
	ChatID    int64
	Text      string
	FileName  string
	ExpiresAt time.Time
}

// Expired reports whether the result is past its expiry at now.
func (p PendingResult) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

// ErrPendingNotFound is returned when a pending result token is unknown,
// already taken, or expired.
var ErrPendingNotFound = errors.New("pending result not found")

// Choice is one inline button offered to the user. Data comes back verbatim
// in the resulting callback event.
type Choice struct {
	Label string
	Data  string
}
