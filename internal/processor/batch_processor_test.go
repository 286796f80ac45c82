package processor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipradar/server/config"
	"flipradar/server/internal/database"
	"flipradar/server/internal/models"
	"flipradar/server/internal/queue"
)

func testSetup(t *testing.T) (*database.Database, *queue.SaleQueue, *BatchProcessor) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 2
	cfg.BatchProcessing.MaxRetries = 1
	cfg.BatchProcessing.RetryDelay = 0

	q := queue.NewSaleQueue(10, logger)
	return db, q, NewBatchProcessor(db.ORM(), q, cfg, logger)
}

func floatPtr(v float64) *float64 { return &v }

func TestBatchProcessor_PersistsBatches(t *testing.T) {
	db, q, p := testSetup(t)
	p.Start()

	soldAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	err := q.Push([]*models.SaleRecord{
		{ListingURL: "https://example.com/1", City: "auckland", SoldPrice: floatPtr(500000), SoldDate: &soldAt, ScrapedAt: time.Now()},
		{ListingURL: "https://example.com/2", City: "auckland", SoldPrice: floatPtr(550000), SoldDate: &soldAt, ScrapedAt: time.Now()},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		records, err := db.GetSalesSince("auckland", time.Time{})
		return err == nil && len(records) == 2
	}, 2*time.Second, 10*time.Millisecond)

	q.Close()
	p.Stop()
}

func TestBatchProcessor_StopWithoutWork(t *testing.T) {
	_, _, p := testSetup(t)
	p.Start()
	p.Stop()
}
