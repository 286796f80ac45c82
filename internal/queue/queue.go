package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// SaleQueue is an in-memory buffer of scraped sale-record batches sitting
// between the scraper and the batch processor's workers.
type SaleQueue struct {
	items   chan []*models.SaleRecord
	maxSize int
	closed  bool
	mu      sync.RWMutex
	logger  *logrus.Logger
}

// NewSaleQueue creates a queue holding up to bufferSize batches.
func NewSaleQueue(bufferSize int, logger *logrus.Logger) *SaleQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &SaleQueue{
		items:   make(chan []*models.SaleRecord, bufferSize),
		maxSize: bufferSize,
		logger:  logger,
	}
}

// Push adds a batch to the queue. Non-blocking: a full queue returns
// ErrQueueFull rather than stalling the scraper's stdout reader.
func (q *SaleQueue) Push(records []*models.SaleRecord) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- records:
		q.logger.WithField("batch_size", len(records)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Items exposes the receive side for worker loops. The channel closes when
// the queue closes, after draining buffered batches.
func (q *SaleQueue) Items() <-chan []*models.SaleRecord {
	return q.items
}

// Close stops the queue. Buffered batches remain receivable.
func (q *SaleQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// Len returns the number of buffered batches.
func (q *SaleQueue) Len() int {
	return len(q.items)
}

// IsClosed reports whether the queue has been closed.
func (q *SaleQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
