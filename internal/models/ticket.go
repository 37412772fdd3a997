package models

import (
	"github.com/uptrace/bun"
)

// Ticket is one resale listing on an event's ticket widget. Identity is
// (event_id, title, price). Price stays as extracted text since the site
// formats currency inconsistently and nothing downstream compares it
// numerically. Ignore is an operator switch: an ignored ticket never
// counts as available, so a listing stuck in a bad state can be muted
// without deleting it.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID        string `bun:"id,pk"`
	EventID   string `bun:"event_id,notnull"`
	Title     string `bun:"title,notnull"`
	Price     string `bun:"price,notnull"`
	Available bool   `bun:"available,notnull"`
	Ignore    bool   `bun:"ignore,notnull"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}
