package interfaces

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	failures  int
	committed []int64
	closed    chan struct{}
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, closed: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker not available")
	}
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, errors.New("reader closed")
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	close(r.closed)
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type recordingInvalidator struct {
	mu         sync.Mutex
	businesses []string
}

func (i *recordingInvalidator) InvalidateBusiness(businessID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.businesses = append(i.businesses, businessID)
	return 1
}

func (i *recordingInvalidator) seen() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.businesses...)
}

func TestRuleChangeConsumer(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Offset: 1, Value: []byte(`{"businessId":"biz","sourceType":"PROMOTIONAL","ruleId":"p1"}`)},
		kafka.Message{Offset: 2, Value: []byte(`not json`)},
		kafka.Message{Offset: 3, Value: []byte(`{"sourceType":"VOLUME"}`)},
		kafka.Message{Offset: 4, Value: []byte(`{"businessId":"other"}`)},
	)
	reader.failures = 1
	target := &recordingInvalidator{}

	c := NewRuleChangeConsumer(reader, target)
	c.backoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	require.Eventually(t, func() bool { return len(reader.commits()) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2, 3, 4}, reader.commits(), "malformed messages are committed and skipped")
	assert.Equal(t, []string{"biz", "other"}, target.seen())

	require.NoError(t, c.Stop())
}

func TestRuleChangeConsumerStopsOnContextCancel(t *testing.T) {
	reader := newFakeReader()
	c := NewRuleChangeConsumer(reader, &recordingInvalidator{})
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after context cancel")
	}
}
