// Package transport defines the request and response shapes of the
// open-house HTTP surface.
package transport

import (
	"time"

	"github.com/sngor/bayon-backend/internal/openhouse/domain"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title    string    `json:"title" validate:"required,max=200"`
	Address  string    `json:"address" validate:"required,max=300"`
	StartsAt time.Time `json:"startsAt" validate:"required"`
	EndsAt   time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
}

type SessionResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Address     string    `json:"address"`
	PublicToken string    `json:"publicToken"`
	CheckInURL  string    `json:"checkInUrl"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SequenceStepRequest struct {
	OffsetMinutes int    `json:"offsetMinutes" validate:"min=0"`
	Channel       string `json:"channel" validate:"required,oneof=email sms"`
	Template      string `json:"template" validate:"required,max=100"`
	Subject       string `json:"subject" validate:"max=200"`
	Body          string `json:"body" validate:"required,max=5000"`
}

type UpsertSequenceRequest struct {
	Name  string                `json:"name" validate:"required,max=100"`
	Steps []SequenceStepRequest `json:"steps" validate:"required,min=1,dive"`
}

type SequenceResponse struct {
	ID        uuid.UUID             `json:"id"`
	SessionID uuid.UUID             `json:"sessionId"`
	Name      string                `json:"name"`
	Steps     []SequenceStepRequest `json:"steps"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

type CheckInRequest struct {
	FullName      string `json:"fullName" validate:"required,max=150"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	InterestLevel string `json:"interestLevel" validate:"omitempty,oneof=low medium high"`
	Notes         string `json:"notes" validate:"max=2000"`
}

type VisitorResponse struct {
	ID             uuid.UUID  `json:"id"`
	SessionID      uuid.UUID  `json:"sessionId"`
	FullName       string     `json:"fullName"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	InterestLevel  string     `json:"interestLevel"`
	Notes          string     `json:"notes,omitempty"`
	CheckedInAt    time.Time  `json:"checkedInAt"`
	FollowupSentAt *time.Time `json:"followupSentAt,omitempty"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
	ClickedAt      *time.Time `json:"clickedAt,omitempty"`
}

type TouchpointResponse struct {
	ID         uuid.UUID  `json:"id"`
	VisitorID  uuid.UUID  `json:"visitorId"`
	StepNumber int        `json:"stepNumber"`
	DueAt      time.Time  `json:"dueAt"`
	Channel    string     `json:"channel"`
	Template   string     `json:"template"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	LastError  *string    `json:"lastError,omitempty"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	OpenedAt   *time.Time `json:"openedAt,omitempty"`
	ClickedAt  *time.Time `json:"clickedAt,omitempty"`
}

// ProcessSummary is the outcome of one touchpoint batch run.
type ProcessSummary struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

func NewSessionResponse(s domain.Session, checkInURL string) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		Title:       s.Title,
		Address:     s.Address,
		PublicToken: s.PublicToken,
		CheckInURL:  checkInURL,
		StartsAt:    s.StartsAt,
		EndsAt:      s.EndsAt,
		CreatedAt:   s.CreatedAt,
	}
}

func NewVisitorResponse(v domain.Visitor) VisitorResponse {
	return VisitorResponse{
		ID:             v.ID,
		SessionID:      v.SessionID,
		FullName:       v.FullName,
		Email:          v.Email,
		Phone:          v.Phone,
		InterestLevel:  string(v.InterestLevel),
		Notes:          v.Notes,
		CheckedInAt:    v.CheckedInAt,
		FollowupSentAt: v.FollowupSentAt,
		OpenedAt:       v.OpenedAt,
		ClickedAt:      v.ClickedAt,
	}
}

func NewTouchpointResponse(tp domain.Touchpoint) TouchpointResponse {
	return TouchpointResponse{
		ID:         tp.ID,
		VisitorID:  tp.VisitorID,
		StepNumber: tp.StepNumber,
		DueAt:      tp.DueAt,
		Channel:    string(tp.Channel),
		Template:   tp.Template,
		Status:     string(tp.Status),
		Attempts:   tp.Attempts,
		LastError:  tp.LastError,
		SentAt:     tp.SentAt,
		OpenedAt:   tp.OpenedAt,
		ClickedAt:  tp.ClickedAt,
	}
}

func NewSequenceResponse(seq domain.Sequence) SequenceResponse {
	steps := make([]SequenceStepRequest, 0, len(seq.Steps))
	for _, st := range seq.Steps {
		steps = append(steps, SequenceStepRequest{
			OffsetMinutes: st.OffsetMinutes,
			Channel:       string(st.Channel),
			Template:      st.Template,
			Subject:       st.Subject,
			Body:          st.Body,
		})
	}
	return SequenceResponse{
		ID:        seq.ID,
		SessionID: seq.SessionID,
		Name:      seq.Name,
		Steps:     steps,
		UpdatedAt: seq.UpdatedAt,
	}
}
