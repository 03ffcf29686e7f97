package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record wraps emitted event data with its identity and origin.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Vault     string    `json:"vault"`
	Type      EventType `json:"type"`
	Data      EventData `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord stamps data with a fresh id and the current time.
func NewRecord(vault string, data EventData) Record {
	return Record{
		ID:        uuid.New(),
		Vault:     vault,
		Type:      data.EventType(),
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Payload returns the JSON encoding of the record's data.
func (r Record) Payload() ([]byte, error) {
	return json.Marshal(r.Data)
}

// Sink receives records after the emitting operation has committed. Emit must not
// fail the operation; sinks handle their own errors.
type Sink interface {
	Emit(ctx context.Context, record Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record Record)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, record Record) {
	f(ctx, record)
}

// Nop discards every record.
var Nop Sink = SinkFunc(func(context.Context, Record) {})

// Multi fans a record out to several sinks in order.
type Multi []Sink

// Emit forwards record to every non-nil sink.
func (m Multi) Emit(ctx context.Context, record Record) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, record)
		}
	}
}

// Recorder keeps the most recent records in memory.
type Recorder struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
}

// NewRecorder returns a Recorder holding at most capacity records; capacity <= 0 keeps
// everything.
func NewRecorder(capacity int) *Recorder {
	return &Recorder{capacity: capacity}
}

// Emit appends record, evicting the oldest one when full.
func (r *Recorder) Emit(_ context.Context, record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
	if r.capacity > 0 && len(r.records) > r.capacity {
		r.records = append([]Record(nil), r.records[len(r.records)-r.capacity:]...)
	}
}

// Records returns all held records, oldest first.
func (r *Recorder) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Record(nil), r.records...)
}

// Recent returns up to limit records, newest first.
func (r *Recorder) Recent(limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}
	out := make([]Record, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out
}

// OfType returns the data of every held record of the given type, oldest first.
func (r *Recorder) OfType(t EventType) []EventData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []EventData
	for _, rec := range r.records {
		if rec.Type == t {
			out = append(out, rec.Data)
		}
	}
	return out
}

// Reset drops every held record.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
