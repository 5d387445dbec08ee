// Package domain holds the open-house core types shared by the
// repository, services and handlers.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is one open-house event at a property. The public token is
// what check-in links and QR codes embed; it is not guessable from the ID.
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Address     string
	PublicToken string
	StartsAt    time.Time
	EndsAt      time.Time
	ArchivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InterestLevel is the visitor's self-reported buying intent.
type InterestLevel string

const (
	InterestLow    InterestLevel = "low"
	InterestMedium InterestLevel = "medium"
	InterestHigh   InterestLevel = "high"
)

func (l InterestLevel) Valid() bool {
	switch l {
	case InterestLow, InterestMedium, InterestHigh:
		return true
	}
	return false
}

// Visitor is one sign-in at a session. Email or phone is always present.
type Visitor struct {
	ID                uuid.UUID
	SessionID         uuid.UUID
	UserID            uuid.UUID
	FullName          string
	Email             *string
	Phone             *string
	InterestLevel     InterestLevel
	Notes             string
	Source            string
	CheckedInAt       time.Time
	FollowupGenerated bool
	FollowupSentAt    *time.Time
	OpenedAt          *time.Time
	ClickedAt         *time.Time
	CreatedAt         time.Time
}

// HasEmail reports whether the visitor left an email address.
func (v Visitor) HasEmail() bool {
	return v.Email != nil && *v.Email != ""
}

// HasPhone reports whether the visitor left a phone number.
func (v Visitor) HasPhone() bool {
	return v.Phone != nil && *v.Phone != ""
}

// Channel is the delivery channel of a touchpoint.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// TouchpointStatus moves forward only: pending ends in exactly one of
// sent, failed or skipped and never returns to pending.
type TouchpointStatus string

const (
	TouchpointPending TouchpointStatus = "pending"
	TouchpointSent    TouchpointStatus = "sent"
	TouchpointFailed  TouchpointStatus = "failed"
	TouchpointSkipped TouchpointStatus = "skipped"
)

func (s TouchpointStatus) Valid() bool {
	switch s {
	case TouchpointPending, TouchpointSent, TouchpointFailed, TouchpointSkipped:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transition.
func (s TouchpointStatus) Terminal() bool {
	return s == TouchpointSent || s == TouchpointFailed || s == TouchpointSkipped
}

// MaxAttempts is the delivery retry ceiling. The attempt that reaches
// it marks the touchpoint failed.
const MaxAttempts = 3

// Touchpoint is one scheduled follow-up message for a visitor. Content
// comes from the sequence step the touchpoint points at, not from the
// row itself, so editing a sequence updates unsent messages.
type Touchpoint struct {
	ID          uuid.UUID
	VisitorID   uuid.UUID
	SessionID   uuid.UUID
	UserID      uuid.UUID
	StepNumber  int
	DueAt       time.Time
	Channel     Channel
	Template    string
	Status      TouchpointStatus
	Attempts    int
	LastError   *string
	LeasedUntil *time.Time
	SentAt      *time.Time
	OpenedAt    *time.Time
	ClickedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SequenceStep is one entry of a follow-up sequence definition.
// Offsets are relative to the visitor's check-in time.
type SequenceStep struct {
	OffsetMinutes int     `json:"offset_minutes" yaml:"offset_minutes"`
	Channel       Channel `json:"channel" yaml:"channel"`
	Template      string  `json:"template" yaml:"template"`
	Subject       string  `json:"subject" yaml:"subject"`
	Body          string  `json:"body" yaml:"body"`
}

// Offset returns the step delay as a duration.
func (s SequenceStep) Offset() time.Duration {
	return time.Duration(s.OffsetMinutes) * time.Minute
}

// Sequence is the follow-up plan attached to a session.
type Sequence struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Steps     []SequenceStep
	CreatedAt time.Time
	UpdatedAt time.Time
}
