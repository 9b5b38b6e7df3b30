package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *memorySink) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func TestRecorderWritesAsync(t *testing.T) {
	sink := &memorySink{}
	rec := NewRecorder(sink, time.Second)

	actor := uuid.New()
	rec.Record(NewEntry(TypeTask, "Redline", actor, "task created"))
	rec.Record(NewEntry(TypePID, "P-101", actor, "pid assigned"))
	rec.Wait()

	assert.Len(t, sink.entries, 2)
	assert.Equal(t, actor.String(), sink.entries[0].ActorID)
	assert.False(t, sink.entries[0].Timestamp.IsZero())
}

func TestRecorderSwallowsFailures(t *testing.T) {
	sink := &memorySink{err: errors.New("mongo down")}
	rec := NewRecorder(sink, time.Second)

	assert.NotPanics(t, func() {
		rec.Record(NewEntry(TypeLine, "L-1", uuid.New(), "lines created"))
		rec.Wait()
	})
	assert.Empty(t, sink.entries)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Record(Entry{})
		rec.Wait()
	})
}
