package models

import "time"

// BookingState enumerates the booking lifecycle.
type BookingState string

const (
	BookingPending   BookingState = "PENDING"
	BookingConfirmed BookingState = "CONFIRMED"
	BookingCancelled BookingState = "CANCELLED"
	BookingCompleted BookingState = "COMPLETED"
)

// Terminal reports whether no further state transition is possible.
// COMPLETED is terminal for transitions but still accepts ratings.
func (s BookingState) Terminal() bool {
	return s == BookingCancelled || s == BookingCompleted
}

// Perspective identifies which principal is acting on or rating a booking.
type Perspective string

const (
	PerspectiveClient   Perspective = "CLIENT"
	PerspectiveProvider Perspective = "PROVIDER"
)

// Booking is a single request to occupy a provider's time. The two rating
// slots are independent and may be filled only while the booking is COMPLETED.
type Booking struct {
	ID             string       `db:"id" json:"id"`
	ServiceID      string       `db:"service_id" json:"service_id"`
	ServiceName    string       `db:"service_name" json:"service_name"`
	ClientID       string       `db:"client_id" json:"client_id"`
	ClientName     string       `db:"client_name" json:"client_name"`
	ProviderID     string       `db:"provider_id" json:"provider_id"`
	ProviderName   string       `db:"provider_name" json:"provider_name"`
	ContactName    string       `db:"contact_name" json:"contact_name"`
	Date           string       `db:"booking_date" json:"date"`
	StartTime      *string      `db:"start_time" json:"start_time,omitempty"`
	EndTime        *string      `db:"end_time" json:"end_time,omitempty"`
	State          BookingState `db:"state" json:"state"`
	CancelReason   *string      `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CompletionNote *string      `db:"completion_note" json:"completion_note,omitempty"`

	ClientRatingScore     *int    `db:"client_rating_score" json:"client_rating_score,omitempty"`
	ClientRatingComment   *string `db:"client_rating_comment" json:"client_rating_comment,omitempty"`
	ClientRatingNPS       *int    `db:"client_rating_nps" json:"client_rating_nps,omitempty"`
	ProviderRatingScore   *int    `db:"provider_rating_score" json:"provider_rating_score,omitempty"`
	ProviderRatingComment *string `db:"provider_rating_comment" json:"provider_rating_comment,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Rated reports whether the given perspective has already submitted its rating.
func (b *Booking) Rated(p Perspective) bool {
	if p == PerspectiveClient {
		return b.ClientRatingScore != nil
	}
	return b.ProviderRatingScore != nil
}

// Rating is one principal's review of a completed booking. The NPS score is
// collected from clients only.
type Rating struct {
	Score    int    `json:"score" validate:"required,min=1,max=5"`
	Comment  string `json:"comment" validate:"required"`
	NPSScore *int   `json:"nps_score,omitempty" validate:"omitempty,min=1,max=10"`
}

// BookingFilter captures the optional dimensions accepted by booking list calls.
// Absent fields mean "no filter on this dimension".
type BookingFilter struct {
	Search      string
	ServiceName string
	Counterpart string
	ContactName string
	From        string
	To          string
	State       BookingState
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
