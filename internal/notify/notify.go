// Package notify delivers user-facing success and error messages to the
// display layer, decoupled from the booking logic that raises them.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one toast shown to the buyer
type Notification struct {
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier receives notifications for the session carried by ctx
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) {
	sid, _ := session.IDFromContext(ctx)
	fields := []zap.Field{
		zap.String("session_id", sid),
		zap.String("severity", string(n.Severity)),
		zap.String("message", n.Message),
	}
	if n.Severity == SeverityError {
		l.log.Ctx(ctx).Warn("User notification", fields...)
		return
	}
	l.log.Ctx(ctx).Info("User notification", fields...)
}

// Queue buffers notifications per session until the view drains them
type Queue struct {
	mu      sync.Mutex
	pending map[string][]Notification
	limit   int
}

// NewQueue keeps at most limit notifications per session, dropping the oldest
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 20
	}
	return &Queue{pending: make(map[string][]Notification), limit: limit}
}

func (q *Queue) Notify(ctx context.Context, n Notification) {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	list := append(q.pending[sid], n)
	if len(list) > q.limit {
		list = list[len(list)-q.limit:]
	}
	q.pending[sid] = list
}

// Drain returns and forgets the pending notifications of a session
func (q *Queue) Drain(sessionID string) []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.pending[sessionID]
	delete(q.pending, sessionID)
	return list
}

// Forget drops the pending notifications of a session
func (q *Queue) Forget(sessionID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, sessionID)
}

// Publisher is the subset of the Redis client used to broadcast notifications
type Publisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// RedisNotifier publishes notifications on a per-session channel. Nothing in
// the storefront subscribes; the channels are for external push gateways.
type RedisNotifier struct {
	pub    Publisher
	prefix string
	log    *logger.Logger
}

func NewRedisNotifier(pub Publisher, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{pub: pub, prefix: "storefront:notifications:", log: log}
}

func (r *RedisNotifier) Notify(ctx context.Context, n Notification) {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := r.pub.Publish(ctx, r.prefix+sid, payload); err != nil {
		r.log.Ctx(ctx).Warn("Failed to publish notification", zap.Error(err))
	}
}
