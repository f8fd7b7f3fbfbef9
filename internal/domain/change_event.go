package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	TableFoodRequests    = "food_requests"
	TableRecommendations = "recommendations"
	TableNotifications   = "notifications"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	ChangeAny    ChangeType = "*"
)

// ChangeEvent is one row-level change delivered by a change feed.
type ChangeEvent struct {
	Table      string          `json:"table"`
	Type       ChangeType      `json:"type"`
	Record     json.RawMessage `json:"record,omitempty"`
	OldRecord  json.RawMessage `json:"old_record,omitempty"`
	CommitTime time.Time       `json:"commit_time"`
}

func NewChangeEvent(table string, typ ChangeType, record, old any) (ChangeEvent, error) {
	ev := ChangeEvent{Table: table, Type: typ, CommitTime: time.Now().UTC()}
	if record != nil {
		data, err := json.Marshal(record)
		if err != nil {
			return ev, fmt.Errorf("failed to encode record: %w", err)
		}
		ev.Record = data
	}
	if old != nil {
		data, err := json.Marshal(old)
		if err != nil {
			return ev, fmt.Errorf("failed to encode old record: %w", err)
		}
		ev.OldRecord = data
	}
	return ev, nil
}

func (e ChangeEvent) Decode(v any) error {
	if len(e.Record) == 0 {
		return fmt.Errorf("change event on %s has no record", e.Table)
	}
	return json.Unmarshal(e.Record, v)
}

func (e ChangeEvent) DecodeOld(v any) error {
	if len(e.OldRecord) == 0 {
		return fmt.Errorf("change event on %s has no old record", e.Table)
	}
	return json.Unmarshal(e.OldRecord, v)
}

// Field returns a top-level column of the new record (or the old one for deletes) as a string.
func (e ChangeEvent) Field(name string) (string, bool) {
	raw := e.Record
	if len(raw) == 0 {
		raw = e.OldRecord
	}
	if len(raw) == 0 {
		return "", false
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return "", false
	}
	v, ok := row[name]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// ChangeFilter narrows a feed to one table, event type and an optional column equality.
type ChangeFilter struct {
	Table  string
	Event  ChangeType
	Column string
	Value  string
}

func (f ChangeFilter) Matches(e ChangeEvent) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.Event != "" && f.Event != ChangeAny && f.Event != e.Type {
		return false
	}
	if f.Column == "" {
		return true
	}
	v, ok := e.Field(f.Column)
	return ok && v == f.Value
}
