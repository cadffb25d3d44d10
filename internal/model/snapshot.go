package model

import (
	"encoding/json"
	"time"
)

// Snapshot is one immutable upstream fetch result, persisted with its fetch time.
type Snapshot struct {
	ID        string
	SeriesID  string
	FetchedAt time.Time
	Payload   json.RawMessage
}
