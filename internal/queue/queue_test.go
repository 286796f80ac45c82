package queue

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"flipradar/server/internal/models"
)

func TestNewSaleQueue(t *testing.T) {
	q := NewSaleQueue(10, logrus.New())
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
	assert.Equal(t, 0, q.Len())
}

func TestSaleQueue_Push(t *testing.T) {
	q := NewSaleQueue(2, logrus.New())

	batch := []*models.SaleRecord{{ListingURL: "https://example.com/1"}}
	err := q.Push(batch)
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// fill the buffer
	assert.NoError(t, q.Push(batch))
	err = q.Push(batch)
	assert.Equal(t, ErrQueueFull, err)

	q.Close()
	err = q.Push(batch)
	assert.Equal(t, ErrQueueClosed, err)
}

func TestSaleQueue_ItemsDrainAfterClose(t *testing.T) {
	q := NewSaleQueue(5, logrus.New())

	first := []*models.SaleRecord{{ListingURL: "https://example.com/1"}}
	second := []*models.SaleRecord{{ListingURL: "https://example.com/2"}}
	assert.NoError(t, q.Push(first))
	assert.NoError(t, q.Push(second))
	assert.NoError(t, q.Close())

	var received [][]*models.SaleRecord
	for batch := range q.Items() {
		received = append(received, batch)
	}
	assert.Len(t, received, 2)
	assert.Equal(t, "https://example.com/1", received[0][0].ListingURL)
	assert.Equal(t, "https://example.com/2", received[1][0].ListingURL)
}

func TestSaleQueue_CloseIsIdempotent(t *testing.T) {
	q := NewSaleQueue(10, logrus.New())

	assert.NoError(t, q.Close())
	assert.True(t, q.IsClosed())
	assert.NoError(t, q.Close())
}
