package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barizhka/magnate-otc/internal/logger"
	"github.com/Barizhka/magnate-otc/internal/storages"
)

// fakeReader отдает заранее подготовленные сообщения, затем ждет отмены контекста
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	offsets := make([]int64, 0, len(r.committed))
	for _, msg := range r.committed {
		offsets = append(offsets, msg.Offset)
	}
	return offsets
}

type fakeArchive struct {
	mu       sync.Mutex
	events   []storages.Event
	failures int
	calls    int
}

func (a *fakeArchive) SaveEventBatch(_ context.Context, events []storages.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.failures > 0 {
		a.failures--
		return errors.New("mongo unavailable")
	}
	a.events = append(a.events, events...)
	return nil
}

func (a *fakeArchive) saved() []storages.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]storages.Event(nil), a.events...)
}

func eventMessage(t *testing.T, offset int64, event storages.Event) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: value}
}

func dealEvent(userID int64, entityID string) storages.Event {
	return storages.Event{
		Type:          storages.EventDealCreated,
		UserID:        userID,
		EntityID:      entityID,
		Amount:        "100",
		PaymentMethod: "ton",
		Status:        "active",
		Source:        "web",
		Timestamp:     time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC),
	}
}

func runConsumer(t *testing.T, consumer *Consumer, until func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Start(ctx)
	}()

	require.Eventually(t, until, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumerSavesAndCommitsBatch(t *testing.T) {
	reader := newFakeReader(
		eventMessage(t, 1, dealEvent(1, "web_1")),
		eventMessage(t, 2, dealEvent(2, "web_2")),
	)
	archive := &fakeArchive{}

	consumer := newConsumer(&Config{BatchSize: 2, Workers: 1, FlushInterval: time.Hour}, reader, archive, logger.Discard())
	runConsumer(t, consumer, func() bool { return len(reader.committedOffsets()) == 1 })

	saved := archive.saved()
	require.Len(t, saved, 2)
	assert.Equal(t, "web_1", saved[0].EntityID)
	assert.Equal(t, "web_2", saved[1].EntityID)
	// Коммит последнего офсета пакета покрывает весь пакет
	assert.Equal(t, []int64{2}, reader.committedOffsets())

	stats := consumer.GetStatistics()
	assert.Equal(t, int64(2), stats.MessagesProcessed)
	assert.Equal(t, int64(0), stats.MessagesFailed)
}

func TestConsumerFlushesPartialBatchOnStop(t *testing.T) {
	reader := newFakeReader(eventMessage(t, 5, dealEvent(1, "web_partial")))
	archive := &fakeArchive{}

	consumer := newConsumer(&Config{BatchSize: 100, Workers: 1, FlushInterval: time.Hour}, reader, archive, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.queue) == 0
	}, 2*time.Second, 10*time.Millisecond)
	// Даем воркеру забрать сообщение из канала
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	require.Len(t, archive.saved(), 1)
	assert.Equal(t, []int64{5}, reader.committedOffsets())
}

func TestConsumerCommitsMalformedMessages(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Offset: 1, Value: []byte("{not json")},
		eventMessage(t, 2, storages.Event{Type: "deal_deleted", UserID: 1, EntityID: "x"}),
		eventMessage(t, 3, storages.Event{Type: storages.EventTicketCreated, EntityID: "ticket_1"}),
		eventMessage(t, 4, dealEvent(1, "web_ok")),
	)
	archive := &fakeArchive{}

	consumer := newConsumer(&Config{BatchSize: 1, Workers: 1, FlushInterval: time.Hour}, reader, archive, logger.Discard())
	runConsumer(t, consumer, func() bool { return len(reader.committedOffsets()) == 4 })

	saved := archive.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "web_ok", saved[0].EntityID)

	stats := consumer.GetStatistics()
	assert.Equal(t, int64(1), stats.MessagesProcessed)
	assert.Equal(t, int64(3), stats.MessagesFailed)
}

func TestConsumerRetriesArchive(t *testing.T) {
	reader := newFakeReader(eventMessage(t, 1, dealEvent(1, "web_retry")))
	archive := &fakeArchive{failures: 2}

	consumer := newConsumer(&Config{
		BatchSize:     1,
		FlushInterval: time.Hour,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, reader, archive, logger.Discard())
	runConsumer(t, consumer, func() bool { return len(reader.committedOffsets()) == 1 })

	assert.Equal(t, 3, archive.calls)
	assert.Len(t, archive.saved(), 1)
}

func TestConsumerRetainsFailedBatch(t *testing.T) {
	reader := newFakeReader(
		eventMessage(t, 1, dealEvent(1, "web_first")),
		eventMessage(t, 2, dealEvent(2, "web_second")),
	)
	archive := &fakeArchive{failures: 1}

	consumer := newConsumer(&Config{
		BatchSize:     1,
		Workers:       1,
		FlushInterval: time.Hour,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, reader, archive, logger.Discard())
	runConsumer(t, consumer, func() bool { return len(reader.committedOffsets()) == 2 })

	saved := archive.saved()
	require.Len(t, saved, 2)
	assert.Equal(t, "web_first", saved[0].EntityID)
	assert.Equal(t, "web_second", saved[1].EntityID)
	assert.Equal(t, []int64{1, 2}, reader.committedOffsets())

	stats := consumer.GetStatistics()
	assert.Equal(t, int64(2), stats.MessagesProcessed)
	assert.Equal(t, int64(1), stats.MessagesFailed)
}

func TestConsumerDoesNotCommitPastUnsavedBatch(t *testing.T) {
	reader := newFakeReader(
		eventMessage(t, 1, dealEvent(1, "web_lost")),
		eventMessage(t, 2, dealEvent(2, "web_later")),
		kafka.Message{Offset: 3, Value: []byte("{not json")},
	)
	archive := &fakeArchive{failures: 1 << 20}

	consumer := newConsumer(&Config{
		BatchSize:     1,
		Workers:       1,
		FlushInterval: time.Hour,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, reader, archive, logger.Discard())
	runConsumer(t, consumer, func() bool { return consumer.GetStatistics().MessagesFailed >= 3 })

	assert.Empty(t, reader.committedOffsets())
	assert.Empty(t, archive.saved())
	assert.Equal(t, int64(0), consumer.GetStatistics().MessagesProcessed)

	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)
}

func TestOffsetTracker(t *testing.T) {
	tracker := newOffsetTracker()
	msg := func(partition int, offset int64) kafka.Message {
		return kafka.Message{Partition: partition, Offset: offset}
	}
	offsets := func(msgs []kafka.Message) []int64 {
		result := make([]int64, 0, len(msgs))
		for _, m := range msgs {
			result = append(result, m.Offset)
		}
		return result
	}

	for _, m := range []kafka.Message{msg(0, 1), msg(0, 2), msg(0, 3), msg(1, 10)} {
		tracker.track(m)
	}

	// Офсеты 2 и 3 ждут, пока не обработан офсет 1
	assert.Empty(t, tracker.complete(msg(0, 2)))
	assert.Empty(t, tracker.complete(msg(0, 3)))
	assert.Equal(t, []int64{10}, offsets(tracker.complete(msg(1, 10))))
	assert.Equal(t, []int64{3}, offsets(tracker.complete(msg(0, 1))))

	tracker.track(msg(0, 4))
	assert.Equal(t, []int64{4}, offsets(tracker.complete(msg(0, 4))))
}

func TestParseMessage(t *testing.T) {
	event, err := parseMessage(eventMessage(t, 0, dealEvent(42, "web_42")))
	require.NoError(t, err)
	assert.Equal(t, int64(42), event.UserID)
	assert.Equal(t, "100", event.Amount)

	_, err = parseMessage(kafka.Message{Value: []byte(`{"type":"deal_created","user_id":0,"entity_id":"web"}`)})
	assert.Error(t, err)
}
