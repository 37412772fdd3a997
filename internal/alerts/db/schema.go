package db

import (
	"context"

	"ra-resale/internal/models"
)

// CreateSchema creates the three tables in dependency order. Tickets
// and trackers reference events with ON DELETE CASCADE, which is what
// makes event deletion clear the owned subtree.
func (d *DB) CreateSchema(ctx context.Context) error {
	if _, err := d.Bun.NewCreateTable().
		Model((*models.Event)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return err
	}

	if _, err := d.Bun.NewCreateTable().
		Model((*models.Ticket)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return err
	}

	if _, err := d.Bun.NewCreateTable().
		Model((*models.Tracker)(nil)).
		IfNotExists().
		ForeignKey(`("event_id") REFERENCES "events" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return err
	}

	return nil
}

// DropSchema drops the tables in reverse dependency order.
func (d *DB) DropSchema(ctx context.Context) error {
	for _, model := range []interface{}{
		(*models.Tracker)(nil),
		(*models.Ticket)(nil),
		(*models.Event)(nil),
	} {
		if _, err := d.Bun.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
