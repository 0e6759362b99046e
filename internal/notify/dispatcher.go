// Package notify delivers system notifications after a rental change commits.
// Every notification is written to the rental's chat room and then fanned out
// to the configured email and push channels. Delivery is best effort.
package notify

import (
	"context"
	"sync"
	"time"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/logger"
	"neighbor-storage-backend/internal/metrics"
	"neighbor-storage-backend/internal/repository"
)

// Sender delivers a notification to one user over an external channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, to *domain.User, n domain.Notification) error
}

type Options struct {
	Workers   int
	QueueSize int
	// SendTimeout bounds each delivery attempt.
	SendTimeout time.Duration
}

type Dispatcher struct {
	store   repository.Store
	senders []Sender
	metrics *metrics.Metrics
	timeout time.Duration

	queue chan domain.Notification
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(store repository.Store, m *metrics.Metrics, opts Options, senders ...Sender) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	d := &Dispatcher{
		store:   store,
		senders: senders,
		metrics: m,
		timeout: opts.SendTimeout,
		queue:   make(chan domain.Notification, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues n without blocking. A full queue or a closed dispatcher drops it.
func (d *Dispatcher) Notify(ctx context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logger.WarnContext(ctx, "Notification dropped after shutdown", "rentalID", n.RentalID)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.metrics.ObserveNotification("queue", errQueueFull)
		logger.WarnContext(ctx, "Notification queue full, dropping", "rentalID", n.RentalID)
	}
}

// Close stops accepting notifications and waits for queued ones to drain.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Notification delivery panicked", "rentalID", n.RentalID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.writeSystemMessage(ctx, n)
	d.metrics.ObserveNotification("chat", err)
	if err != nil {
		logger.Error("Failed to write system message", "rentalID", n.RentalID, "error", err)
	}

	if len(d.senders) == 0 {
		return
	}
	users := d.store.Repos().Users
	for _, id := range n.Recipients {
		user, err := users.GetByID(ctx, id)
		if err != nil {
			logger.Warn("Notification recipient lookup failed", "userID", id, "error", err)
			continue
		}
		for _, s := range d.senders {
			err := s.Send(ctx, user, n)
			d.metrics.ObserveNotification(s.Channel(), err)
			if err != nil {
				logger.Warn("Notification send failed", "channel", s.Channel(), "userID", id, "error", err)
			}
		}
	}
}

func (d *Dispatcher) writeSystemMessage(ctx context.Context, n domain.Notification) error {
	chat := d.store.Repos().Chat
	room, err := chat.GetOrCreateRoom(ctx, n.Room)
	if err != nil {
		return err
	}
	return chat.AddMessage(ctx, &domain.ChatMessage{
		RoomID:    room.ID,
		SenderID:  domain.SystemSenderID,
		Text:      n.Text,
		IsSystem:  true,
		CreatedAt: n.CreatedAt,
	})
}

type notifyError string

func (e notifyError) Error() string { return string(e) }

const errQueueFull notifyError = "notification queue full"
