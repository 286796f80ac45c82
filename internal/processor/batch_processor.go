package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"flipradar/server/config"
	"flipradar/server/internal/database"
	"flipradar/server/internal/models"
	"flipradar/server/internal/queue"
)

// BatchProcessor drains the sale queue into the database with transactional
// upserts and bounded retries.
type BatchProcessor struct {
	orm       *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.SaleQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewBatchProcessor(orm *gorm.DB, q *queue.SaleQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		orm:    orm,
		queue:  q,
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop cancels the workers and waits for in-flight batches to finish.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case batch, ok := <-p.queue.Items():
			if !ok {
				return
			}
			if err := p.processBatch(batch); err != nil {
				p.logger.WithError(err).Error("Dropping batch after exhausting retries")
			}
		}
	}
}

// processBatch upserts one batch inside a transaction, retrying transient
// failures up to the configured limit.
func (p *BatchProcessor) processBatch(batch []*models.SaleRecord) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.orm.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertSaleRecords(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert sale records: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d sale records", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
