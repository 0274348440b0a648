// Package broadcaster implements the per-debate publish/subscribe topic:
// an append-only event log with ordered, non-blocking multi-subscriber
// fan-out and late-join catch-up.
package broadcaster

import (
	"sync"
	"time"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/telemetry"
)

// EventType enumerates the engine's fixed event taxonomy (spec.md §4.4).
// No event types are added beyond this set; payload shape is closed.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventDebateStarted         EventType = "debate_started"
	EventRoundStarted          EventType = "round_started"
	EventAgentThinking         EventType = "agent_thinking"
	EventMessageReceived       EventType = "message_received"
	EventTurnComplete          EventType = "turn_complete"
	EventRoundComplete         EventType = "round_complete"
	EventJudgingStarted        EventType = "judging_started"
	EventJudgeResult           EventType = "judge_result"
	EventDebateComplete        EventType = "debate_complete"
	EventError                 EventType = "error"
)

// Event is the envelope every subscriber receives (spec.md §6).
type Event struct {
	Type      EventType   `json:"type"`
	DebateID  string      `json:"debate_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// subscriberBufferSize bounds how far a subscriber may lag behind the
// publisher before it is disconnected.
const subscriberBufferSize = 64

type subscriber struct {
	ch     chan Event
	closed bool
}

type topic struct {
	mu          sync.Mutex
	log         []Event
	subscribers map[*subscriber]struct{}
	closed      bool
}

// Broadcaster owns one topic per debate id.
type Broadcaster struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

// New returns an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{topics: make(map[string]*topic)}
}

func (b *Broadcaster) topicFor(debateID string) *topic {
	b.mu.RLock()
	t, ok := b.topics[debateID]
	b.mu.RUnlock()
	if ok {
		return t
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok = b.topics[debateID]; ok {
		return t
	}
	t = &topic{subscribers: make(map[*subscriber]struct{})}
	b.topics[debateID] = t
	return t
}

// Publish atomically appends event to the debate's log, then delivers
// it to every active subscriber. Delivery never blocks: a subscriber
// whose buffer is full is marked lagging and disconnected.
func (b *Broadcaster) Publish(debateID string, eventType EventType, payload interface{}) {
	t := b.topicFor(debateID)
	event := Event{Type: eventType, DebateID: debateID, Payload: payload, Timestamp: time.Now().UTC()}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.log = append(t.log, event)
	lagging := make([]*subscriber, 0)
	for sub := range t.subscribers {
		select {
		case sub.ch <- event:
		default:
			lagging = append(lagging, sub)
		}
	}
	for _, sub := range lagging {
		delete(t.subscribers, sub)
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	t.mu.Unlock()

	if len(lagging) > 0 {
		telemetry.LogBroadcastEvent("subscriber_disconnected_lagging", debateID, telemetry.Fields{"count": len(lagging)})
	}
}

// Subscription is what Subscribe returns: a point-in-time snapshot, the
// offset it was taken at, and a channel that first replays the retained
// log up to that offset and then delivers the events published after
// it. The channel closes
// when Unsubscribe is called, when the subscriber lags, or when the
// debate has reached (or, while attached, reaches) a terminal state and
// the backlog has been fully drained — a subscriber never has to
// unsubscribe itself to observe end-of-stream.
type Subscription struct {
	Snapshot *domain.DebateState
	Offset   int
	Events   <-chan Event

	topic *topic
	sub   *subscriber
}

// Subscribe attaches to debateID's topic. snapshot is supplied by the
// caller (typically from a Store.Get made just before the call);
// Subscribe does not synchronize that read with the topic, so the
// snapshot may predate events already counted in the offset. When
// snapshot is non-nil, a
// connection_established event carrying the snapshot's status and
// progress is delivered first, ahead of the backlog.
func (b *Broadcaster) Subscribe(debateID string, snapshot *domain.DebateState) *Subscription {
	t := b.topicFor(debateID)

	t.mu.Lock()
	defer t.mu.Unlock()

	offset := len(t.log)
	backlog := append([]Event(nil), t.log...)
	if snapshot != nil {
		connEvent := Event{
			Type:     EventConnectionEstablished,
			DebateID: debateID,
			Payload: map[string]interface{}{
				"status":        snapshot.Status,
				"current_round": snapshot.CurrentRound,
				"current_turn":  snapshot.CurrentTurn,
				"message_count": len(snapshot.History),
			},
			Timestamp: time.Now().UTC(),
		}
		backlog = append([]Event{connEvent}, backlog...)
	}

	sub := &subscriber{ch: make(chan Event, subscriberBufferSize)}
	if t.closed {
		sub.closed = true
		close(sub.ch)
	} else {
		t.subscribers[sub] = struct{}{}
	}

	out := make(chan Event, subscriberBufferSize)
	go replay(backlog, sub, out)

	return &Subscription{Snapshot: snapshot, Offset: offset, Events: out, topic: t, sub: sub}
}

// MarkTerminal closes debateID's topic to further events: no event will
// ever be published again for it. Subscribers already attached have
// their channels closed, so their Events stream ends once any buffered
// events drain; subscribers attaching afterward receive the retained
// log (and, per Subscribe, their own connection_established) followed
// immediately by end-of-stream. Safe to call more than once.
func (b *Broadcaster) MarkTerminal(debateID string) {
	t := b.topicFor(debateID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for sub := range t.subscribers {
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	t.subscribers = make(map[*subscriber]struct{})
}

// replay drains the backlog into out first, then forwards live events
// from sub.ch until it closes.
func replay(backlog []Event, sub *subscriber, out chan<- Event) {
	defer close(out)
	for _, e := range backlog {
		out <- e
	}
	for e := range sub.ch {
		out <- e
	}
}

// Unsubscribe detaches the subscription; its Events channel closes once
// any already-buffered events drain.
func (s *Subscription) Unsubscribe() {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	if _, ok := s.topic.subscribers[s.sub]; ok {
		delete(s.topic.subscribers, s.sub)
		if !s.sub.closed {
			s.sub.closed = true
			close(s.sub.ch)
		}
	}
}

// DropTopic discards a debate's retained log and subscriber set, e.g.
// after the debate record itself is deleted.
func (b *Broadcaster) DropTopic(debateID string) {
	b.mu.Lock()
	t, ok := b.topics[debateID]
	if ok {
		delete(b.topics, debateID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}

	t.mu.Lock()
	for sub := range t.subscribers {
		if !sub.closed {
			sub.closed = true
			close(sub.ch)
		}
	}
	t.mu.Unlock()
}
