package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		Port string `env:"SERVER_PORT" envDefault:"5250"`
	}

	// Database configuration
	Database struct {
		// Path to the SQLite database file, relative to the working directory
		Path string `env:"DATABASE_PATH" envDefault:"database/flipradar.db"`
	}

	// Analysis pipeline configuration
	Analysis struct {
		// Recency window for comparable sales, in months
		CompWindowMonths int `env:"COMP_WINDOW_MONTHS" envDefault:"12"`

		// Maximum number of comparables fed into the market estimator
		CompMaxResults int `env:"COMP_MAX_RESULTS" envDefault:"25"`

		// Transaction cost rate applied to ARV (agent, legal, holding)
		TransactionCostRate float64 `env:"TRANSACTION_COST_RATE" envDefault:"0.10"`

		// Target margin rate applied to ARV when deriving max purchase price
		TargetMarginRate float64 `env:"TARGET_MARGIN_RATE" envDefault:"0.15"`
	}

	// Advisor (LLM capability) configuration
	Advisor struct {
		// Anthropic API key; advisors are disabled when empty and the
		// documented numeric fallbacks apply
		APIKey string `env:"ANTHROPIC_API_KEY"`

		// Request timeout for a single advisor call, in seconds
		TimeoutSeconds int `env:"ADVISOR_TIMEOUT" envDefault:"60"`
	}

	// Scraper configuration for the comparables pool data source
	Scraper struct {
		// Path to the scraper entry script
		ScriptPath string `env:"SCRAPER_SCRIPT" envDefault:"scripts/run_scraper.py"`

		// Disables the scrape scheduler entirely
		Disabled bool `env:"SCRAPER_DISABLED" envDefault:"false"`
	}

	// BatchProcessing configuration for sale-record ingestion
	BatchProcessing struct {
		// Maximum number of sale records to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
