package domain

import "time"

// Comment is a message on a ticket thread. Comments are immutable once
// created. The author reference is required; deleting the author cascades
// comment deletion, unlike ticket creators whose reference is nulled.
type Comment struct {
	ID        int64
	TicketID  int64
	UserID    int64
	Body      string
	CreatedAt time.Time

	// Joined projection; populated only by queries that include the author.
	Author *UserRef
}
