package scraping

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
	"flipradar/server/internal/queue"
)

// ScrapeManager runs the Python sold-listings scraper as a subprocess and
// feeds its output into the sale queue in batches.
type ScrapeManager struct {
	logger       *logrus.Logger
	scriptPath   string
	queue        *queue.SaleQueue
	maxBatchSize int
}

// ScrapeParams is the JSON handed to the script on stdin.
type ScrapeParams struct {
	ScrapeType string `json:"scrape_type"` // only "sold" is supported
	Place      string `json:"place"`
	MaxPages   *int   `json:"max_pages"`
}

// ScrapeMessage is one line of the script's stdout protocol.
type ScrapeMessage struct {
	Type string          `json:"type"` // "items", "complete", or "error"
	Data json.RawMessage `json:"data"`
}

func NewScrapeManager(q *queue.SaleQueue, scriptPath string, maxBatchSize int, logger *logrus.Logger) *ScrapeManager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if scriptPath == "" {
		scriptPath = filepath.Join("scripts", "run_scraper.py")
	}
	absPath, err := filepath.Abs(scriptPath)
	if err != nil {
		logger.WithError(err).Error("Failed to get absolute path to scraper script")
		absPath = scriptPath
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}

	return &ScrapeManager{
		logger:       logger,
		scriptPath:   absPath,
		queue:        q,
		maxBatchSize: maxBatchSize,
	}
}

// RunSoldScrape refreshes the sold-sales pool for one place. It blocks until
// the subprocess exits.
func (m *ScrapeManager) RunSoldScrape(place string, maxPages *int) error {
	params := ScrapeParams{ScrapeType: "sold", Place: place, MaxPages: maxPages}
	m.logger.WithFields(logrus.Fields{
		"place":     params.Place,
		"max_pages": params.MaxPages,
	}).Info("Starting sold-sales scrape")

	inputData, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal scraper parameters: %w", err)
	}

	cmd := exec.Command("python3", m.scriptPath)
	cmd.Stdin = bytes.NewBuffer(inputData)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start scraper: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			m.logger.Error(scanner.Text())
		}
	}()

	m.consumeOutput(stdout, place)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("scraper execution failed: %w", err)
	}
	return nil
}

func (m *ScrapeManager) consumeOutput(stdout io.Reader, place string) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		var msg ScrapeMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			m.logger.WithError(err).Error("Failed to parse scraper message")
			continue
		}

		switch msg.Type {
		case "items":
			var items []map[string]interface{}
			if err := json.Unmarshal(msg.Data, &items); err != nil {
				m.logger.WithError(err).Error("Failed to parse items")
				continue
			}
			m.enqueueItems(items, place)

		case "complete":
			var complete struct {
				Status     string `json:"status"`
				Message    string `json:"message"`
				TotalItems int    `json:"total_items"`
			}
			if err := json.Unmarshal(msg.Data, &complete); err != nil {
				m.logger.WithError(err).Error("Failed to parse completion message")
				continue
			}
			m.logger.WithFields(logrus.Fields{
				"status":      complete.Status,
				"total_items": complete.TotalItems,
			}).Info("Scrape completed")

		case "error":
			var errMsg struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(msg.Data, &errMsg); err != nil {
				m.logger.WithError(err).Error("Failed to parse error message")
				continue
			}
			m.logger.WithField("message", errMsg.Message).Error("Scraper error")
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.WithError(err).Error("Scanner error")
	}
}

// enqueueItems converts raw scraped items and pushes them in bounded batches.
func (m *ScrapeManager) enqueueItems(items []map[string]interface{}, place string) {
	batch := make([]*models.SaleRecord, 0, m.maxBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := m.queue.Push(batch); err != nil {
			m.logger.WithError(err).WithField("batch_size", len(batch)).Error("Failed to enqueue batch")
		}
		batch = make([]*models.SaleRecord, 0, m.maxBatchSize)
	}

	for _, item := range items {
		record, err := parseSaleRecord(item, place)
		if err != nil {
			m.logger.WithError(err).Debug("Skipping unparseable sale item")
			continue
		}
		batch = append(batch, record)
		if len(batch) >= m.maxBatchSize {
			flush()
		}
	}
	flush()
}

// parseSaleRecord maps one scraped item into a SaleRecord. Scraped payloads
// are loosely typed, so every numeric field tolerates both strings and
// numbers.
func parseSaleRecord(item map[string]interface{}, place string) (*models.SaleRecord, error) {
	listingURL := stringField(item, "listing_url", "url")
	if listingURL == "" {
		return nil, fmt.Errorf("sale item has no listing URL")
	}

	record := &models.SaleRecord{
		ListingURL: listingURL,
		Address:    stringField(item, "address", "street"),
		City:       stringField(item, "city"),
		ScrapedAt:  time.Now(),
	}
	if record.City == "" {
		record.City = place
	}

	record.SoldPrice = floatField(item, "sold_price", "price")
	if soldDate := stringField(item, "sold_date"); soldDate != "" {
		if t, err := time.Parse("2006-01-02", soldDate); err == nil {
			record.SoldDate = &t
		}
	}
	record.Bedrooms = intField(item, "bedrooms")
	record.Bathrooms = intField(item, "bathrooms")
	record.FloorArea = floatField(item, "floor_area")
	record.LandArea = floatField(item, "land_area")
	record.DaysOnMarket = intField(item, "days_on_market")
	record.PropertyType = stringField(item, "property_type")

	return record, nil
}

func stringField(item map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := item[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func floatField(item map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := item[key].(type) {
		case float64:
			f := v
			return &f
		case string:
			var f float64
			if _, err := fmt.Sscanf(strings.ReplaceAll(v, ",", ""), "%f", &f); err == nil {
				return &f
			}
		}
	}
	return nil
}

func intField(item map[string]interface{}, keys ...string) *int {
	if f := floatField(item, keys...); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}
