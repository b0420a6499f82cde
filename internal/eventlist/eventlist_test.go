package eventlist

import (
	"testing"
	"time"

	"github.com/marcus/calsync/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestList_BucketsByDay(t *testing.T) {
	list := New(day(2026, 7, 1), day(2026, 8, 1))

	morning := &models.Event{
		Title: "standup",
		Start: time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 10, 9, 15, 0, 0, time.UTC),
	}
	afternoon := &models.Event{
		Title: "review",
		Start: time.Date(2026, 7, 10, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 10, 16, 0, 0, 0, time.UTC),
	}
	allDay := &models.Event{
		Title:  "offsite",
		AllDay: true,
		Start:  day(2026, 7, 10),
		End:    day(2026, 7, 11),
	}
	otherDay := &models.Event{
		Title: "dentist",
		Start: time.Date(2026, 7, 20, 11, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC),
	}
	for _, e := range []*models.Event{afternoon, morning, allDay, otherDay} {
		list.Add(e)
	}

	got := list.EventsForDate(day(2026, 7, 10))
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	// All-day first, then by start time.
	if got[0].Title != "offsite" || got[1].Title != "standup" || got[2].Title != "review" {
		t.Errorf("order: %s, %s, %s", got[0].Title, got[1].Title, got[2].Title)
	}

	if !list.HasEventsOnDay(day(2026, 7, 20)) {
		t.Error("expected events on the 20th")
	}
	if list.HasEventsOnDay(day(2026, 7, 21)) {
		t.Error("no events expected on the 21st")
	}
}

func TestList_SkipsHiddenEvents(t *testing.T) {
	list := New(day(2026, 7, 1), day(2026, 8, 1))
	list.Add(&models.Event{
		Title:  "hidden",
		Status: models.StatusHidden,
		Start:  time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 7, 10, 10, 0, 0, 0, time.UTC),
	})

	if len(list.Events()) != 0 {
		t.Error("hidden events must not enter the list")
	}
}

func TestList_ExpandsDailyRecurrence(t *testing.T) {
	list := New(day(2026, 7, 1), day(2026, 7, 8))

	list.Add(&models.Event{
		ID:         42,
		Title:      "workout",
		Start:      time.Date(2026, 7, 2, 7, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 7, 2, 8, 0, 0, 0, time.UTC),
		Recurrence: "FREQ=DAILY;COUNT=3",
	})

	for _, d := range []int{2, 3, 4} {
		got := list.EventsForDate(day(2026, 7, d))
		if len(got) != 1 {
			t.Fatalf("july %d: got %d events, want 1", d, len(got))
		}
		if got[0].ID != 42 {
			t.Errorf("occurrence lost the canonical id: %d", got[0].ID)
		}
		wantStart := time.Date(2026, 7, d, 7, 0, 0, 0, time.UTC)
		if !got[0].Start.Equal(wantStart) {
			t.Errorf("july %d start: got %v", d, got[0].Start)
		}
		if got[0].End.Sub(got[0].Start) != time.Hour {
			t.Errorf("july %d duration: got %v", d, got[0].End.Sub(got[0].Start))
		}
	}

	if list.HasEventsOnDay(day(2026, 7, 5)) {
		t.Error("count-limited rule expanded past its count")
	}
}

func TestList_RecurrenceBoundedByWindow(t *testing.T) {
	list := New(day(2026, 7, 1), day(2026, 7, 8))

	list.Add(&models.Event{
		Title:      "weekly",
		Start:      time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 6, 3, 11, 0, 0, 0, time.UTC),
		Recurrence: "FREQ=WEEKLY",
	})

	var inWindow int
	for d := 1; d < 8; d++ {
		inWindow += len(list.EventsForDate(day(2026, 7, d)))
	}
	if inWindow != 1 {
		t.Errorf("got %d occurrences inside one week, want 1", inWindow)
	}
}

func TestList_UnparsableRuleFallsBack(t *testing.T) {
	list := New(day(2026, 7, 1), day(2026, 8, 1))

	list.Add(&models.Event{
		Title:      "broken",
		Start:      time.Date(2026, 7, 10, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 7, 10, 10, 0, 0, 0, time.UTC),
		Recurrence: "not-an-rrule",
	})

	got := list.EventsForDate(day(2026, 7, 10))
	if len(got) != 1 || got[0].Title != "broken" {
		t.Fatalf("base occurrence should survive an unparsable rule: %v", got)
	}
}
