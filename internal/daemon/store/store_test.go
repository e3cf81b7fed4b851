package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastToSubscribers(t *testing.T) {
	s := New()
	a := s.Subscribe()
	b := s.Subscribe()

	u := Update{Type: UpdateTransition, Source: "machine", At: time.Unix(100, 0)}
	s.ApplyUpdate(u)

	assert.Equal(t, u, <-a)
	assert.Equal(t, u, <-b)

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Transitions)
	assert.Equal(t, 2, st.Subscribers)
	assert.Equal(t, time.Unix(100, 0), st.LastUpdate)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := New()
	ch := s.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			s.ApplyUpdate(Update{Type: UpdateFeedback})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ApplyUpdate blocked on a full subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, uint64(10), s.Stats().Dropped)
	assert.Equal(t, uint64(subscriberBuffer+10), s.Stats().Feedback)
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	s := New()
	ch := s.Subscribe()
	s.Unsubscribe(ch)
	s.Unsubscribe(ch)

	_, open := <-ch
	require.False(t, open)
	assert.Equal(t, 0, s.Stats().Subscribers)
}

func TestConfigChangeRecorded(t *testing.T) {
	s := New()
	s.ApplyUpdate(Update{Type: UpdateConfigChanged, Source: "config", Payload: "/p/nudge.yml"})
	assert.Equal(t, "/p/nudge.yml", s.LastConfigChange())
	assert.Equal(t, uint64(1), s.Stats().ConfigChanges)
}
