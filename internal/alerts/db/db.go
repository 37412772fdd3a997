package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ra-resale/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetOrCreateEvent returns the event row matching the full identity
// tuple, inserting one when none exists. The bool reports whether a row
// was created.
func (d *DB) GetOrCreateEvent(ctx context.Context, event models.Event) (*models.Event, bool, error) {
	var existing models.Event
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("title = ?", event.Title).
		Where("url = ?", event.URL).
		Where("date = ?", event.Date).
		Where("resale_active = ?", event.ResaleActive).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()
	if _, err := d.Bun.NewInsert().Model(&event).Exec(ctx); err != nil {
		return nil, false, err
	}
	return &event, true, nil
}

// DeleteEvent removes an event row by id. Owned tickets and trackers go
// with it via the cascade.
func (d *DB) DeleteEvent(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// EventsWithUnsentTrackers returns every event that still has at least
// one tracker waiting on a notification. These are the events worth
// refreshing on an update cycle.
func (d *DB) EventsWithUnsentTrackers(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("EXISTS (SELECT 1 FROM trackers AS t WHERE t.event_id = event.id AND t.sent = ?)", false).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetOrCreateTicket returns the ticket row for (event, title, price),
// inserting one when none exists.
func (d *DB) GetOrCreateTicket(ctx context.Context, ticket models.Ticket) (*models.Ticket, bool, error) {
	var existing models.Ticket
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("event_id = ?", ticket.EventID).
		Where("title = ?", ticket.Title).
		Where("price = ?", ticket.Price).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	ticket.ID = uuid.NewString()
	if _, err := d.Bun.NewInsert().Model(&ticket).Exec(ctx); err != nil {
		return nil, false, err
	}
	return &ticket, true, nil
}

// SetTicketAvailability overwrites the availability flag with the value
// from the freshest extraction.
func (d *DB) SetTicketAvailability(ctx context.Context, id string, available bool) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("available = ?", available).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// AvailableTickets returns every ticket currently flagged available and
// not suppressed, with its owning event loaded.
func (d *DB) AvailableTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Relation("Event").
		Where("ticket.available = ?", true).
		Where(`ticket."ignore" = ?`, false).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ResetAvailability clears the availability flag on the given tickets.
// Run after a send cycle so the next update must re-confirm availability
// before anyone is notified again.
func (d *DB) ResetAvailability(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("available = ?", false).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}

// GetOrCreateTracker returns the tracker row for (email, event),
// inserting one with sent=false when none exists. An existing row is
// returned untouched, so re-subscribing never resets the sent flag.
func (d *DB) GetOrCreateTracker(ctx context.Context, tracker models.Tracker) (*models.Tracker, bool, error) {
	var existing models.Tracker
	err := d.Bun.NewSelect().
		Model(&existing).
		Where("event_id = ?", tracker.EventID).
		Where("email = ?", tracker.Email).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, err
	}

	tracker.ID = uuid.NewString()
	tracker.Datetime = time.Now().UTC()
	tracker.Sent = false
	if _, err := d.Bun.NewInsert().Model(&tracker).Exec(ctx); err != nil {
		return nil, false, err
	}
	return &tracker, true, nil
}

// EligibleTrackers returns every unsent tracker whose event has at least
// one available ticket, with the owning event loaded.
func (d *DB) EligibleTrackers(ctx context.Context) ([]models.Tracker, error) {
	var trackers []models.Tracker
	err := d.Bun.NewSelect().
		Model(&trackers).
		Relation("Event").
		Where("tracker.sent = ?", false).
		Where(`EXISTS (SELECT 1 FROM tickets AS ti WHERE ti.event_id = tracker.event_id AND ti.available = ? AND ti."ignore" = ?)`, true, false).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return trackers, nil
}

// MarkTrackerSent flips the sent flag after a successful dispatch.
func (d *DB) MarkTrackerSent(ctx context.Context, id string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Tracker)(nil)).
		Set("sent = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// CountTrackersForURL counts subscriptions across every event row that
// shares the url. Used for the "you and N others" line in the alert.
func (d *DB) CountTrackersForURL(ctx context.Context, url string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Tracker)(nil)).
		Join("JOIN events AS e ON e.id = tracker.event_id").
		Where("e.url = ?", url).
		Count(ctx)
}

// ExpiredTrackers returns trackers whose event date is strictly before
// the cutoff, with the owning event loaded.
func (d *DB) ExpiredTrackers(ctx context.Context, cutoff time.Time) ([]models.Tracker, error) {
	var trackers []models.Tracker
	err := d.Bun.NewSelect().
		Model(&trackers).
		Relation("Event").
		Where("event.date < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return trackers, nil
}

// DeleteTracker removes a tracker row by id.
func (d *DB) DeleteTracker(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Tracker)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
