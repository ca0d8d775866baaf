package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StampsIDAndTime(t *testing.T) {
	e := New(BlobUploaded, "logs", "2021/app.log", 42)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, BlobUploaded, e.Type)
	assert.Equal(t, int64(42), e.Size)
	assert.WithinDuration(t, time.Now(), e.OccurredAt, time.Minute)
}

func TestEncodeDecode(t *testing.T) {
	e := New(ContainerCreated, "logs", "", 0)

	body, err := Encode(e)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"container.created"`)
	assert.NotContains(t, string(body), `"blob"`)

	got, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.True(t, e.OccurredAt.Equal(got.OccurredAt))

	_, err = Decode([]byte(`{"container":"logs"}`))
	assert.Error(t, err)
}

func TestToMessage(t *testing.T) {
	e := New(BlobDeleted, "logs", "a.txt", 0)

	msg, err := toMessage(e)
	require.NoError(t, err)
	assert.Equal(t, ContentType, *msg.ContentType)
	assert.Equal(t, e.ID, *msg.MessageID)
	assert.Equal(t, "blob.deleted", msg.ApplicationProperties[PropertyEventType])
}

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, New(ContainerCreated, "a", "", 0)))
	require.NoError(t, p.Publish(ctx, New(BlobUploaded, "a", "b", 1)))
	assert.Equal(t, []Type{ContainerCreated, BlobUploaded}, p.Types())

	boom := errors.New("boom")
	p.FailWith(boom)
	assert.ErrorIs(t, p.Publish(ctx, New(BlobDeleted, "a", "b", 0)), boom)
	assert.Len(t, p.Events(), 2)
}

type fakeReceiver struct {
	mu          sync.Mutex
	pending     []*azservicebus.ReceivedMessage
	completed   []string
	abandoned   []string
	deadLetters []string
	closed      bool
}

func (f *fakeReceiver) ReceiveMessages(ctx context.Context, maxMessages int, _ *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		n := maxMessages
		if n > len(f.pending) {
			n = len(f.pending)
		}
		batch := f.pending[:n]
		f.pending = f.pending[n:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeReceiver) CompleteMessage(_ context.Context, m *azservicebus.ReceivedMessage, _ *azservicebus.CompleteMessageOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, m.MessageID)
	return nil
}

func (f *fakeReceiver) AbandonMessage(_ context.Context, m *azservicebus.ReceivedMessage, _ *azservicebus.AbandonMessageOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, m.MessageID)
	return nil
}

func (f *fakeReceiver) DeadLetterMessage(_ context.Context, m *azservicebus.ReceivedMessage, _ *azservicebus.DeadLetterOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadLetters = append(f.deadLetters, m.MessageID)
	return nil
}

func (f *fakeReceiver) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func received(t *testing.T, id string, e *Event) *azservicebus.ReceivedMessage {
	t.Helper()
	if e == nil {
		return &azservicebus.ReceivedMessage{MessageID: id, Body: []byte("not json")}
	}
	body, err := Encode(*e)
	require.NoError(t, err)
	return &azservicebus.ReceivedMessage{MessageID: id, Body: body}
}

func TestConsumer_SettlesMessages(t *testing.T) {
	ok := New(BlobUploaded, "logs", "a.txt", 1)
	failing := New(BlobDeleted, "logs", "b.txt", 0)

	r := &fakeReceiver{pending: []*azservicebus.ReceivedMessage{
		received(t, "m1", &ok),
		received(t, "m2", &failing),
		received(t, "m3", nil),
	}}

	handled := make(chan Event, 3)
	c := newConsumer(r, ConsumerConfig{Queue: "blob-events", ReceiveTimeout: 20 * time.Millisecond}, func(ctx context.Context, e Event) error {
		handled <- e
		if e.Type == BlobDeleted {
			return errors.New("handler failed")
		}
		return nil
	})

	c.Start(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-handled:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}

	assert.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.deadLetters) == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(stopCtx))

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, []string{"m1"}, r.completed)
	assert.Equal(t, []string{"m2"}, r.abandoned)
	assert.Equal(t, []string{"m3"}, r.deadLetters)
	assert.True(t, r.closed)
}
