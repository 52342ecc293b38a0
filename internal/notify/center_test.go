package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccawaisnadeem/storefront-go/internal/domain"
)

func TestPushAndDismiss(t *testing.T) {
	c := NewCenter()

	id := c.Error("Login failed", "invalid credentials")
	require.NotEmpty(t, id)
	require.Len(t, c.Active(), 1)
	assert.Equal(t, domain.NotificationError, c.Active()[0].Type)

	c.Dismiss(id)
	assert.Empty(t, c.Active())

	// dismissing again is a no-op
	c.Dismiss(id)
	assert.Empty(t, c.Active())
}

func TestAutoExpiry(t *testing.T) {
	c := NewCenter()

	c.Push(domain.Notification{
		Type:     domain.NotificationInfo,
		Message:  "short lived",
		Duration: 20 * time.Millisecond,
	})
	require.Len(t, c.Active(), 1)

	assert.Eventually(t, func() bool {
		return len(c.Active()) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeReceivesAddAndRemove(t *testing.T) {
	c := NewCenter()
	events, cancel := c.Subscribe()
	defer cancel()

	id := c.Success("Order placed", "thanks!")
	c.Dismiss(id)

	ev := <-events
	assert.Equal(t, EventAdded, ev.Kind)
	assert.Equal(t, id, ev.Notification.ID)

	ev = <-events
	assert.Equal(t, EventRemoved, ev.Kind)
	assert.Equal(t, id, ev.Notification.ID)
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	c := NewCenter()
	events, cancel := c.Subscribe()
	cancel()

	c.Info("hello", "world")

	_, open := <-events
	assert.False(t, open)
}
