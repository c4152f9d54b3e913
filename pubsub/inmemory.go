package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/primitive"
)

// inMemorySubscription pairs a per-subscriber buffered channel with a
// dedicated draining goroutine, so that one slow handler cannot stall
// delivery to other subscribers of the same topic.
type inMemorySubscription struct {
	id      string
	topic   string
	ch      chan Message
	done    chan struct{}
	once    sync.Once
	cancelF func(sub *inMemorySubscription)
}

func (s *inMemorySubscription) Topic() string { return s.topic }
func (s *inMemorySubscription) ID() string    { return s.id }
func (s *inMemorySubscription) Cancel() error {
	s.once.Do(func() {
		close(s.done)
		s.cancelF(s)
	})
	return nil
}

// InMemoryService is the reference PubSubService implementation: an
// in-process fan-out bus plus a bucket-event marker set. A real deployment
// would swap this for a managed broker (Kafka/SNS/Pub-Sub) behind the same
// Service contract.
type InMemoryService struct {
	logger logging.Logger

	mu            sync.RWMutex
	subscriptions map[string]map[string]*inMemorySubscription
	bucketMarkers map[string]bool

	published int64
	delivered int64
	dropped   int64

	closed   bool
	closedMu sync.Mutex
	wg       sync.WaitGroup
}

func New(logger logging.Logger) *InMemoryService {
	return &InMemoryService{
		logger:        logging.OrNop(logger),
		subscriptions: make(map[string]map[string]*inMemorySubscription),
		bucketMarkers: make(map[string]bool),
	}
}

var _ Service = (*InMemoryService)(nil)

func (s *InMemoryService) EnsureTopicExists(_ context.Context, topic string) primitive.OperationResult[bool] {
	if topic == "" {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyTopic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[topic]; !ok {
		s.subscriptions[topic] = make(map[string]*inMemorySubscription)
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) Publish(_ context.Context, topic string, payload []byte) primitive.OperationResult[bool] {
	if topic == "" {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyTopic)
	}
	if len(payload) == 0 {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyMessage)
	}
	if s.isClosed() {
		return primitive.Fail[bool](primitive.StatusServiceUnavailable, "%v", ErrClosed)
	}

	envelope, err := wrapEnvelope(topic, payload)
	if err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "wrap cloudevent: %v", err)
	}

	atomic.AddInt64(&s.published, 1)
	msg := Message{Topic: topic, Payload: envelope, CreatedAt: time.Now().UTC()}

	s.mu.RLock()
	subs := make([]*inMemorySubscription, 0, len(s.subscriptions[topic]))
	for _, sub := range s.subscriptions[topic] {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
			atomic.AddInt64(&s.delivered, 1)
		default:
			atomic.AddInt64(&s.dropped, 1)
			s.logger.Warn("pubsub: subscriber channel full, dropping message", "topic", topic, "subscription", sub.id)
		}
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) Subscribe(ctx context.Context, topic string, onMessage Handler, onError ErrorHandler) primitive.OperationResult[Subscription] {
	if topic == "" {
		return primitive.Fail[Subscription](primitive.StatusBadRequest, "%v", ErrEmptyTopic)
	}
	if onMessage == nil {
		return primitive.Fail[Subscription](primitive.StatusBadRequest, "pubsub: handler cannot be nil")
	}
	if s.isClosed() {
		return primitive.Fail[Subscription](primitive.StatusServiceUnavailable, "%v", ErrClosed)
	}

	sub := &inMemorySubscription{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan Message, 64),
		done:  make(chan struct{}),
	}
	sub.cancelF = func(sub *inMemorySubscription) {
		s.mu.Lock()
		delete(s.subscriptions[topic], sub.id)
		s.mu.Unlock()
	}

	s.mu.Lock()
	if _, ok := s.subscriptions[topic]; !ok {
		s.subscriptions[topic] = make(map[string]*inMemorySubscription)
	}
	s.subscriptions[topic][sub.id] = sub
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-sub.done:
				return
			case <-ctx.Done():
				return
			case msg := <-sub.ch:
				if err := onMessage(ctx, msg); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()

	return primitive.Ok[Subscription](sub)
}

func (s *InMemoryService) DeleteTopic(_ context.Context, topic string) primitive.OperationResult[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions[topic] {
		sub.Cancel() //nolint:errcheck // Cancel never errors
	}
	delete(s.subscriptions, topic)
	delete(s.bucketMarkers, topic)
	return primitive.Ok(true)
}

func (s *InMemoryService) MarkUsedOnBucketEvent(_ context.Context, topic string) primitive.OperationResult[bool] {
	if topic == "" {
		return primitive.Fail[bool](primitive.StatusBadRequest, "%v", ErrEmptyTopic)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucketMarkers[topic] = true
	return primitive.Ok(true)
}

func (s *InMemoryService) UnmarkUsedOnBucketEvent(_ context.Context, topic string) primitive.OperationResult[bool] {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bucketMarkers, topic)
	return primitive.Ok(true)
}

func (s *InMemoryService) GetTopicsUsedOnBucketEventAsync(context.Context) primitive.OperationResult[[]string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topics := make([]string, 0, len(s.bucketMarkers))
	for t := range s.bucketMarkers {
		topics = append(topics, t)
	}
	return primitive.Ok(topics)
}

func (s *InMemoryService) Stats() Stats {
	return Stats{
		Published: atomic.LoadInt64(&s.published),
		Delivered: atomic.LoadInt64(&s.delivered),
		Dropped:   atomic.LoadInt64(&s.dropped),
	}
}

func (s *InMemoryService) isClosed() bool {
	s.closedMu.Lock()
	defer s.closedMu.Unlock()
	return s.closed
}

// Close cancels every outstanding subscription and waits for subscriber
// goroutines to drain.
func (s *InMemoryService) Close(context.Context) error {
	s.closedMu.Lock()
	s.closed = true
	s.closedMu.Unlock()

	// Cancel takes s.mu itself to deregister, so collect under the lock
	// and cancel after releasing it.
	s.mu.Lock()
	var outstanding []*inMemorySubscription
	for _, subs := range s.subscriptions {
		for _, sub := range subs {
			outstanding = append(outstanding, sub)
		}
	}
	s.mu.Unlock()
	for _, sub := range outstanding {
		sub.Cancel() //nolint:errcheck
	}

	s.wg.Wait()
	return nil
}
