package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Tracker binds one email address to one event. Identity is
// (email, event_id). Sent flips true once an alert has been dispatched
// and is never reset except by deletion.
type Tracker struct {
	bun.BaseModel `bun:"table:trackers"`

	ID       string    `bun:"id,pk"`
	EventID  string    `bun:"event_id,notnull"`
	Email    string    `bun:"email,notnull"`
	Datetime time.Time `bun:"datetime,notnull"`
	Sent     bool      `bun:"sent,notnull"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
