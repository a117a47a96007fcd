package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/daftar/backend/internal/domain/shared"
	"github.com/daftar/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const notifierCloseTimeout = 5 * time.Second

// ChangeMessage is the payload published on the change channel. The frontend
// and any cache layers key their refreshes off these notifications.
type ChangeMessage struct {
	Table     string `json:"table"`
	Op        string `json:"op"`
	ID        string `json:"id"`
	Timestamp int64  `json:"ts,omitempty"`
}

// RedisChangeNotifier implements ChangeNotifier over Redis Pub/Sub
type RedisChangeNotifier struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisChangeNotifierOption is a functional option for configuring the notifier
type RedisChangeNotifierOption func(*RedisChangeNotifier)

// WithNotifierChannel sets the Pub/Sub channel name
func WithNotifierChannel(channel string) RedisChangeNotifierOption {
	return func(n *RedisChangeNotifier) {
		n.channel = channel
	}
}

// WithNotifierLogger sets the logger for the notifier
func WithNotifierLogger(logger *zap.Logger) RedisChangeNotifierOption {
	return func(n *RedisChangeNotifier) {
		n.logger = logger
	}
}

// NewRedisChangeNotifier creates a notifier with its own Redis connection
func NewRedisChangeNotifier(cfg *config.RedisConfig, opts ...RedisChangeNotifierOption) (*RedisChangeNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	notifier := &RedisChangeNotifier{
		client:     client,
		ownsClient: true,
		channel:    cfg.ChangeChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier, nil
}

// NewRedisChangeNotifierWithClient creates a notifier on an existing Redis
// client. The caller retains ownership of the client.
func NewRedisChangeNotifierWithClient(client *redis.Client, channel string, opts ...RedisChangeNotifierOption) *RedisChangeNotifier {
	notifier := &RedisChangeNotifier{
		client:     client,
		ownsClient: false,
		channel:    channel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(notifier)
	}

	return notifier
}

// NotifyChange publishes a change notification for a table row
func (n *RedisChangeNotifier) NotifyChange(ctx context.Context, table, op string, id uuid.UUID) error {
	msg := ChangeMessage{
		Table:     table,
		Op:        op,
		ID:        id.String(),
		Timestamp: time.Now().UnixNano(),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish change notification",
			zap.String("channel", n.channel),
			zap.String("table", table),
			zap.Error(err))
		return fmt.Errorf("failed to publish change notification: %w", err)
	}

	n.logger.Debug("Published change notification",
		zap.String("table", table),
		zap.String("op", op),
		zap.String("id", msg.ID))

	return nil
}

// Subscribe starts listening for change notifications. The callback is
// invoked for each received message. Blocks until the context is cancelled
// or Close is called.
func (n *RedisChangeNotifier) Subscribe(ctx context.Context, callback func(msg ChangeMessage)) error {
	n.mu.Lock()
	if n.isRunning {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	n.isRunning = true
	n.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancelFn = cancel
	n.mu.Unlock()

	pubsub := n.client.Subscribe(subCtx, n.channel)
	defer pubsub.Close()

	// Wait for subscription confirmation
	if _, err := pubsub.Receive(subCtx); err != nil {
		n.mu.Lock()
		n.isRunning = false
		n.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	n.logger.Info("Subscribed to change channel", zap.String("channel", n.channel))

	ch := pubsub.Channel()

	for {
		select {
		case <-subCtx.Done():
			n.mu.Lock()
			n.isRunning = false
			n.mu.Unlock()
			n.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("Change channel closed")
				n.mu.Lock()
				n.isRunning = false
				n.mu.Unlock()
				n.markDone()
				return nil
			}

			var change ChangeMessage
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				n.logger.Error("Failed to unmarshal change message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			// Callbacks run in their own goroutine so a slow consumer
			// does not stall the subscription.
			go func(m ChangeMessage) {
				defer func() {
					if r := recover(); r != nil {
						n.logger.Error("Panic in change callback", zap.Any("panic", r))
					}
				}()
				callback(m)
			}(change)
		}
	}
}

// Client exposes the underlying Redis client, for health probes
func (n *RedisChangeNotifier) Client() *redis.Client {
	return n.client
}

// markDone safely marks the notifier subscription as stopped
func (n *RedisChangeNotifier) markDone() {
	n.doneOnce.Do(func() {
		close(n.doneCh)
	})
}

// Close stops the subscription and releases the Redis connection if owned
func (n *RedisChangeNotifier) Close() error {
	n.mu.Lock()
	cancelFn := n.cancelFn
	n.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-n.doneCh:
		case <-time.After(notifierCloseTimeout):
			n.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if n.ownsClient {
		return n.client.Close()
	}
	return nil
}

// Ensure RedisChangeNotifier implements ChangeNotifier
var _ shared.ChangeNotifier = (*RedisChangeNotifier)(nil)
