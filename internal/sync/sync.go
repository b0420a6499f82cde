// Package sync is the synchronization core: the Center state machine gating
// runs, the per-run Session, the per-event Job pushing local changes to the
// remote service, and the pull pipeline (EventFetch + EventService) merging
// remote events into the local store.
package sync

import (
	"context"
	"time"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
)

// Store is the persistence surface the engine consumes. *db.DB satisfies it.
type Store interface {
	AccountForCalendar(c *models.Calendar) (*models.Account, error)
	EnabledCalendars() ([]*models.Calendar, error)
	ModifiableCalendars() ([]*models.Calendar, error)
	TouchCalendar(c *models.Calendar, syncTime time.Time) error

	LocallyModifiedEvents() ([]*models.Event, error)
	HasLocallyModifiedEvents() (bool, error)
	EventByRemoteID(calendarID int64, remoteID string) (*models.Event, error)
	SaveEvent(e *models.Event) error
	RemoveEvent(e *models.Event) error
	TouchEvent(e *models.Event, syncTime time.Time) error
	RemoveEventsOlderThan(cutoff, start, end time.Time, calendarID int64) (int64, error)
}

// Service is one account's connection to the remote calendar service.
// *remote.Client satisfies it.
type Service interface {
	ListEvents(ctx context.Context, calendarID string, start, end time.Time, pageToken string) (*remote.EventPage, error)
	CreateEvent(ctx context.Context, calendarID string, ev *remote.Event) (*remote.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev *remote.Event) (*remote.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ServiceProvider resolves the Service for an account.
type ServiceProvider interface {
	ServiceFor(account *models.Account) (Service, error)
}

// ServiceProviderFunc adapts a function to the ServiceProvider interface.
type ServiceProviderFunc func(account *models.Account) (Service, error)

// ServiceFor calls f.
func (f ServiceProviderFunc) ServiceFor(account *models.Account) (Service, error) {
	return f(account)
}
