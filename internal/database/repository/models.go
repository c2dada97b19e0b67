package repository

import "time"

// UIData is one persisted UI-scoped value.
type UIData struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// JournalSession groups the records of one store lifetime.
type JournalSession struct {
	ID        string
	StartedAt time.Time
	Initial   []byte
	Records   int
}

// JournalRecord is one dispatched action with the snapshot it produced.
type JournalRecord struct {
	ID         string
	SessionID  string
	Seq        uint64
	ActionType string
	Action     []byte
	State      []byte
	RecordedAt time.Time
}
