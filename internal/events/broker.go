// Package events publishes chat change notifications to JetStream and hands
// out explicit subscriptions with a cancellation handle and an inactivity
// TTL. This replaces the managed platform's implicit reactive query cache:
// clients subscribe, get poked when a chat changes, and re-fetch the detail.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pixelbranch/image-edit-platform/internal/model"
	"github.com/pixelbranch/image-edit-platform/pkg/logger"
	"github.com/pixelbranch/image-edit-platform/pkg/metrics"
)

const (
	// StreamName is the name of the chat events stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all chat event subjects.
	SubjectPrefix = "chat"
)

// Broker publishes and subscribes to chat events.
type Broker struct {
	js     jetstream.JetStream
	logger *logger.Logger
}

// NewBroker creates a broker over a JetStream context.
func NewBroker(js jetstream.JetStream, log *logger.Logger) *Broker {
	return &Broker{js: js, logger: log}
}

// EnsureStream ensures the chat events stream exists.
func (b *Broker) EnsureStream(ctx context.Context) error {
	_, err := b.js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = b.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Chat change notifications",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// eventSubject returns the subject for a chat event.
func eventSubject(userID, chatID string, eventType model.ChatEventType) string {
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, userID, chatID, eventType)
}

// chatFilter returns the filter subject for all events of one chat.
func chatFilter(userID, chatID string) string {
	return fmt.Sprintf("%s.%s.%s.>", SubjectPrefix, userID, chatID)
}

// Publish publishes a chat event. Event ids and timestamps are filled in
// when absent.
func (b *Broker) Publish(ctx context.Context, event *model.ChatEvent) (uint64, error) {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := b.js.Publish(ctx, eventSubject(event.UserID, event.ChatID, event.Type), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	return ack.Sequence, nil
}

// Subscription delivers events for one chat until cancelled or idle past its
// TTL. Callers must call Cancel when done; the TTL is a backstop for
// abandoned subscriptions.
type Subscription struct {
	ch     chan model.ChatEvent
	cancel func()
	idle   *time.Timer
	ttl    time.Duration
	mu     sync.Mutex
	done   bool
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan model.ChatEvent {
	return s.ch
}

// Cancel stops delivery and releases the consumer. Safe to call twice.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	s.idle.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	close(s.ch)
	metrics.DecrementSubscriptions()
}

func (s *Subscription) deliver(event model.ChatEvent) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.idle.Reset(s.ttl)
	s.mu.Unlock()

	select {
	case s.ch <- event:
	default:
		// Slow consumer: drop rather than block the consume callback. The
		// client re-fetches full state on any event, so a dropped poke only
		// delays the refresh until the next one.
	}
}

// Subscribe creates an ephemeral consumer for one chat's events, delivering
// only events published after the subscription starts.
func (b *Broker) Subscribe(ctx context.Context, userID, chatID string, ttl time.Duration) (*Subscription, error) {
	consumer, err := b.js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     chatFilter(userID, chatID),
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		InactiveThreshold: ttl + time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	sub := &Subscription{
		ch:  make(chan model.ChatEvent, 16),
		ttl: ttl,
	}
	metrics.IncrementSubscriptions()
	// Arm the idle timer before consuming so deliver never sees a nil timer.
	sub.idle = time.AfterFunc(ttl, sub.Cancel)

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var event model.ChatEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			b.logger.Warn("dropping malformed chat event")
			return
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
		}
		sub.deliver(event)
	})
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	sub.mu.Lock()
	sub.cancel = cc.Stop
	alreadyDone := sub.done
	sub.mu.Unlock()
	if alreadyDone {
		// Idle TTL fired during setup; release the consumer now.
		cc.Stop()
		return nil, fmt.Errorf("subscription expired during setup")
	}

	return sub, nil
}
