package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeiro/internal/amqp"
	"financeiro/internal/store/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.DocumentChangeMessage
	err  error
}

func (r *recordingPublisher) PublishChange(_ context.Context, msg *amqp.DocumentChangeMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func TestPublishingStore_ForwardsWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := NewPublishingStore(memory.New(), pub, nil)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "personal_entries", "1", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Set(ctx, "entries", "2", []byte(`{"id":"2"}`)))
	require.NoError(t, s.Delete(ctx, "entries", "2"))
	require.NoError(t, s.Set(ctx, "scratch", "x", []byte(`{}`)))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "pessoal", pub.msgs[0].Workspace)
	assert.Equal(t, "personal_entries", pub.msgs[0].Collection)
	assert.Equal(t, amqp.OpSet, pub.msgs[0].Op)
	assert.Equal(t, int64(1), pub.msgs[0].Version)

	assert.Equal(t, "escritorio", pub.msgs[2].Workspace)
	assert.Equal(t, amqp.OpDelete, pub.msgs[2].Op)
	assert.Equal(t, int64(2), pub.msgs[2].Version)
}

func TestPublishingStore_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	s := NewPublishingStore(memory.New(), pub, nil)

	require.NoError(t, s.Set(ctx, "entries", "1", []byte(`{"id":"1"}`)))
	doc, err := s.Get(ctx, "entries", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(doc))
}

func TestPublishingStore_NilPublisherAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewPublishingStore(memory.New(), nil, nil)
	require.NoError(t, s.Set(ctx, "entries", "1", []byte(`{}`)))

	pub := &recordingPublisher{}
	s2 := NewPublishingStore(memory.New(), pub, nil)
	require.NoError(t, s2.Close())
	require.NoError(t, s2.Set(ctx, "entries", "1", []byte(`{}`)))
	assert.Empty(t, pub.msgs)
}
