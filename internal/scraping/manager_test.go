package scraping

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipradar/server/internal/queue"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestParseSaleRecord(t *testing.T) {
	item := map[string]interface{}{
		"listing_url":    "https://example.com/1",
		"address":        "5 Sample Rd",
		"city":           "auckland",
		"sold_price":     625000.0,
		"sold_date":      "2026-03-15",
		"bedrooms":       3.0,
		"bathrooms":      1.0,
		"floor_area":     110.0,
		"days_on_market": 28.0,
		"property_type":  "house",
	}

	got, err := parseSaleRecord(item, "auckland")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1", got.ListingURL)
	assert.Equal(t, "5 Sample Rd", got.Address)
	assert.Equal(t, 625000.0, *got.SoldPrice)
	assert.Equal(t, "2026-03-15", got.SoldDate.Format("2006-01-02"))
	assert.Equal(t, 3, *got.Bedrooms)
	assert.Equal(t, 28, *got.DaysOnMarket)
	assert.Equal(t, "house", got.PropertyType)
	assert.False(t, got.ScrapedAt.IsZero())
}

func TestParseSaleRecord_StringNumericsAndFallbacks(t *testing.T) {
	item := map[string]interface{}{
		"url":   "https://example.com/2",
		"price": "1,250,000",
	}

	got, err := parseSaleRecord(item, "wellington")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/2", got.ListingURL)
	assert.Equal(t, 1250000.0, *got.SoldPrice)
	// place fills in the missing city
	assert.Equal(t, "wellington", got.City)
	assert.Nil(t, got.SoldDate)
	assert.Nil(t, got.Bedrooms)
}

func TestParseSaleRecord_RequiresListingURL(t *testing.T) {
	_, err := parseSaleRecord(map[string]interface{}{"address": "no url"}, "auckland")
	assert.Error(t, err)
}

func TestParseSaleRecord_IgnoresBadDate(t *testing.T) {
	item := map[string]interface{}{
		"listing_url": "https://example.com/3",
		"sold_date":   "15/03/2026",
	}
	got, err := parseSaleRecord(item, "auckland")
	require.NoError(t, err)
	assert.Nil(t, got.SoldDate)
}

func TestEnqueueItems_BatchesAndSkipsBadItems(t *testing.T) {
	q := queue.NewSaleQueue(10, quietLogger())
	m := NewScrapeManager(q, "", 2, quietLogger())

	items := []map[string]interface{}{
		{"listing_url": "https://example.com/1"},
		{"listing_url": "https://example.com/2"},
		{"address": "no url, skipped"},
		{"listing_url": "https://example.com/3"},
	}
	m.enqueueItems(items, "auckland")
	q.Close()

	var sizes []int
	for batch := range q.Items() {
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{2, 1}, sizes)
}

func TestConsumeOutput_ParsesItemMessages(t *testing.T) {
	q := queue.NewSaleQueue(10, quietLogger())
	m := NewScrapeManager(q, "", 100, quietLogger())

	output := strings.Join([]string{
		`{"type":"items","data":[{"listing_url":"https://example.com/1","sold_price":500000}]}`,
		`not json at all`,
		`{"type":"complete","data":{"status":"ok","total_items":1}}`,
	}, "\n")

	m.consumeOutput(strings.NewReader(output), "auckland")
	q.Close()

	batches := 0
	for batch := range q.Items() {
		batches++
		assert.Len(t, batch, 1)
		assert.Equal(t, "https://example.com/1", batch[0].ListingURL)
	}
	assert.Equal(t, 1, batches)
}
