package notify

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

type recordingPublisher struct {
	channel string
	payload []byte
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message []byte) error {
	p.channel = channel
	p.payload = message
	return nil
}

func TestQueue_DrainPerSession(t *testing.T) {
	q := NewQueue(2)
	a := session.WithID(context.Background(), "a")
	b := session.WithID(context.Background(), "b")

	q.Notify(a, Notification{Severity: SeverityInfo, Message: "1"})
	q.Notify(a, Notification{Severity: SeverityInfo, Message: "2"})
	q.Notify(a, Notification{Severity: SeveritySuccess, Message: "3"})
	q.Notify(b, Notification{Severity: SeverityError, Message: "x"})
	q.Notify(context.Background(), Notification{Message: "dropped"})

	got := q.Drain("a")
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].Message)
	assert.Equal(t, "3", got[1].Message)
	assert.Empty(t, q.Drain("a"))
	assert.Len(t, q.Drain("b"), 1)
}

func TestQueue_Forget(t *testing.T) {
	q := NewQueue(5)
	q.Notify(session.WithID(context.Background(), "gone"), Notification{Severity: SeverityInfo, Message: "1"})
	q.Notify(session.WithID(context.Background(), "kept"), Notification{Severity: SeverityInfo, Message: "2"})

	q.Forget("gone")

	assert.Empty(t, q.Drain("gone"))
	assert.Len(t, q.Drain("kept"), 1)
}

func TestMulti_FansOut(t *testing.T) {
	q1, q2 := NewQueue(5), NewQueue(5)
	ctx := session.WithID(context.Background(), "s")

	Multi{q1, q2, NewLogNotifier(logger.Nop())}.Notify(ctx, Notification{Severity: SeveritySuccess, Message: "ok"})

	assert.Len(t, q1.Drain("s"), 1)
	assert.Len(t, q2.Drain("s"), 1)
}

func TestRedisNotifier_PublishesOnSessionChannel(t *testing.T) {
	pub := &recordingPublisher{}
	ctx := session.WithID(context.Background(), "s1")

	NewRedisNotifier(pub, logger.Nop()).Notify(ctx, Notification{Severity: SeverityError, Message: "sold out"})

	assert.Equal(t, "storefront:notifications:s1", pub.channel)
	var n Notification
	require.NoError(t, json.Unmarshal(pub.payload, &n))
	assert.Equal(t, SeverityError, n.Severity)
	assert.Equal(t, "sold out", n.Message)
}
