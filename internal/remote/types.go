package remote

import (
	"time"
)

// Event is the wire representation of a calendar event.
type Event struct {
	ID              string    `json:"id,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Description     string    `json:"description,omitempty"`
	Location        string    `json:"location,omitempty"`
	ColorID         string    `json:"colorId,omitempty"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	AllDay          bool      `json:"allDay,omitempty"`
	Recurrence      string    `json:"recurrence,omitempty"`
	Updated         time.Time `json:"updated,omitempty"`
	FeedURL         string    `json:"feedUrl,omitempty"`
	OriginalFeedURL string    `json:"originalFeedUrl,omitempty"`
}

// EventPage is one page of a list-events response.
type EventPage struct {
	Items         []Event `json:"items"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Calendar is the wire representation of a calendar-list entry.
type Calendar struct {
	ID         string `json:"id"`
	Summary    string `json:"summary,omitempty"`
	ColorID    string `json:"colorId,omitempty"`
	TimeZone   string `json:"timeZone,omitempty"`
	FeedURL    string `json:"feedUrl,omitempty"`
	AccessRole string `json:"accessRole,omitempty"`
}

// CanModify reports whether the access role permits writes.
func (c *Calendar) CanModify() bool {
	return c.AccessRole == "owner" || c.AccessRole == "writer"
}

// CalendarPage is one page of a list-calendars response.
type CalendarPage struct {
	Items         []Calendar `json:"items"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}
