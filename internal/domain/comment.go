package domain

import "time"

// Comment is an immutable entry in a ticket's thread. Authored either by a
// human or by the system actor for audit trail entries.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  string
	Text      string
	CreatedAt time.Time
}
