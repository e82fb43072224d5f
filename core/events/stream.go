package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"stakehub/core/types"
)

const streamHistoryLimit = 2048

// StreamUpdate is one broadcast ledger event together with its position in
// the stream. Cursor is the decimal sequence number and can be handed back to
// Subscribe to resume after the last seen update.
type StreamUpdate struct {
	Sequence uint64
	Cursor   string
	Event    *types.Event
}

func cloneStreamUpdate(update StreamUpdate) StreamUpdate {
	cloned := update
	if update.Event != nil {
		evt := &types.Event{Type: update.Event.Type}
		if len(update.Event.Attributes) > 0 {
			evt.Attributes = make(map[string]string, len(update.Event.Attributes))
			for k, v := range update.Event.Attributes {
				evt.Attributes[k] = v
			}
		}
		cloned.Event = evt
	}
	return cloned
}

// Stream fans ledger events out to subscribers and retains a bounded replay
// history addressed by cursor. It implements Emitter so it can sit directly
// behind the engine.
type Stream struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan StreamUpdate
	history []StreamUpdate
}

// NewStream returns an empty stream ready to accept subscribers.
func NewStream() *Stream {
	return &Stream{subs: make(map[uint64]chan StreamUpdate)}
}

func broadcastEvent(evt Event) *types.Event {
	if payload, ok := evt.(interface{ Event() *types.Event }); ok {
		if e := payload.Event(); e != nil {
			return e
		}
	}
	return &types.Event{Type: evt.EventType()}
}

// Emit implements Emitter. Slow subscribers drop updates rather than block
// the emitting operation.
func (s *Stream) Emit(evt Event) {
	if s == nil || evt == nil {
		return
	}
	update := StreamUpdate{Event: broadcastEvent(evt)}

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan StreamUpdate)
	}
	s.seq++
	update.Sequence = s.seq
	update.Cursor = strconv.FormatUint(update.Sequence, 10)
	s.history = append(s.history, cloneStreamUpdate(update))
	if len(s.history) > streamHistoryLimit {
		excess := len(s.history) - streamHistoryLimit
		trimmed := make([]StreamUpdate, streamHistoryLimit)
		copy(trimmed, s.history[excess:])
		s.history = trimmed
	}
	subscribers := make([]chan StreamUpdate, 0, len(s.subs))
	for _, ch := range s.subs {
		subscribers = append(subscribers, ch)
	}
	s.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- cloneStreamUpdate(update):
		default:
		}
	}
}

// Subscribe registers a subscriber for ledger events starting after the
// supplied cursor. The returned backlog holds the retained updates newer than
// the cursor; live updates follow on the channel until cancel is called or the
// context ends.
func (s *Stream) Subscribe(ctx context.Context, cursor string) (<-chan StreamUpdate, func(), []StreamUpdate, error) {
	if s == nil {
		return nil, nil, nil, fmt.Errorf("stream not initialised")
	}
	updates := make(chan StreamUpdate, 32)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan StreamUpdate)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	history := make([]StreamUpdate, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	backlog := make([]StreamUpdate, 0, len(history))
	for _, entry := range history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneStreamUpdate(entry))
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			sub, ok := s.subs[id]
			if ok {
				delete(s.subs, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}

// Tee returns an Emitter that forwards each event to every sink in order.
// Nil sinks are skipped.
func Tee(sinks ...Emitter) Emitter {
	return teeEmitter(sinks)
}

type teeEmitter []Emitter

func (t teeEmitter) Emit(evt Event) {
	for _, sink := range t {
		if sink != nil {
			sink.Emit(evt)
		}
	}
}
