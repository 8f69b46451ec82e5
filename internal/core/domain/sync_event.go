package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncSchemaVersion is bumped whenever the SyncEvent wire shape changes incompatibly.
const SyncSchemaVersion = 1

// EventKind names the topic family a sync event is published to.
type EventKind string

const (
	KindUserUpdated EventKind = "user-updated"
)

// SyncEvent is the immutable fact shared with services that keep a derived
// copy of user state. Consumers apply last-write-wins per UserID; a Balance of
// 0 after a delete signals removal.
type SyncEvent struct {
	MessageID     string    `json:"messageId"`
	SchemaVersion int       `json:"schemaVersion"`
	Kind          EventKind `json:"kind"`
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	Balance       int64     `json:"balance"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// NewUserUpdated builds the event announcing the user's current state.
func NewUserUpdated(u *User) SyncEvent {
	return newSyncEvent(u.ID, u.Email, u.Gil)
}

// NewUserRemoved builds the event announcing that the user no longer exists.
// There is no separate tombstone kind: removal is a zero balance.
func NewUserRemoved(u *User) SyncEvent {
	return newSyncEvent(u.ID, u.Email, 0)
}

func newSyncEvent(userID, email string, balance int64) SyncEvent {
	return SyncEvent{
		MessageID:     uuid.NewString(),
		SchemaVersion: SyncSchemaVersion,
		Kind:          KindUserUpdated,
		UserID:        userID,
		Email:         email,
		Balance:       balance,
		OccurredAt:    time.Now().UTC(),
	}
}
