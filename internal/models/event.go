package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Event is a tracked Resident Advisor event page. Reconciliation
// identity is the (title, url, date, resale_active) tuple; the ID column
// is a synthetic key only.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID           string    `bun:"id,pk"`
	Title        string    `bun:"title,notnull"`
	URL          string    `bun:"url,notnull"`
	Date         time.Time `bun:"date,notnull"`
	ResaleActive bool      `bun:"resale_active,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}
