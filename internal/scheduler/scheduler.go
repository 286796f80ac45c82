package scheduler

import (
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/config"
	"flipradar/server/internal/scraping"
)

// Scheduler keeps the comparables pool fresh by running the sold-sales
// scraper for every supported city on a fixed cadence.
type Scheduler struct {
	manager      *scraping.ScrapeManager
	logger       *logrus.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	cities       []string
	jobMutex     sync.Mutex // scrape jobs run one at a time
	isStartupRun bool
}

func NewScheduler(manager *scraping.ScrapeManager, logger *logrus.Logger, cities []string) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Scheduler{
		manager:      manager,
		logger:       logger,
		stopChan:     make(chan struct{}),
		cities:       cities,
		isStartupRun: true,
	}
}

// Start begins the scheduling loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Startup refresh so a fresh deployment has a comparables pool to work
	// with before the first midnight run.
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup sales refresh")
		s.runSoldScrapes()
		s.isStartupRun = false
		s.logger.Info("Startup sales refresh completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	if s.isStartupRun {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// Sold sales change slowly; a nightly refresh is enough.
	if t.Hour() == 0 && t.Minute() == 0 {
		s.logger.Info("Starting scheduled sales refresh")
		s.runSoldScrapes()
		s.logger.Info("Completed scheduled sales refresh")
	}
}

func (s *Scheduler) runSoldScrapes() {
	for _, city := range s.cities {
		normalizedCity := config.NormalizeCity(city)
		log := s.logger.WithFields(logrus.Fields{
			"city":            city,
			"normalized_city": normalizedCity,
		})
		log.Info("Starting scrape job")

		if err := s.manager.RunSoldScrape(normalizedCity, nil); err != nil {
			log.WithError(err).Error("Scrape job failed")
		} else {
			log.Info("Scrape job completed successfully")
		}
	}
}

// Stop halts the loop and waits for the running job, if any, to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
