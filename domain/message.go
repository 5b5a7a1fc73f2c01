package domain

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptEntry is one immutable line of a room's history: a chat message,
// a join notice or a leave notice, attributed to the user that caused it.
type TranscriptEntry struct {
	ID        uuid.UUID // unique identifier
	Sender    string
	Text      string
	CreatedAt time.Time
}
