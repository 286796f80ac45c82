package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"flipradar/server/internal/models"
)

// Service sends deal notifications through the Telegram bot API. All notify
// methods are best-effort: callers log failures and move on.
type Service struct {
	logger  *logrus.Logger
	client  *http.Client
	baseURL string

	mu     sync.RWMutex
	config *models.TelegramConfig
}

func NewService(logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		logger:  logger,
		baseURL: "https://api.telegram.org",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// UpdateConfig swaps in a new configuration. Safe to call while notifications
// are in flight.
func (s *Service) UpdateConfig(config *models.TelegramConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

func (s *Service) currentConfig() *models.TelegramConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SendMessage sends one message to the configured chat. A disabled or absent
// configuration is a silent no-op.
func (s *Service) SendMessage(message string) error {
	config := s.currentConfig()
	if config == nil || !config.IsEnabled {
		return nil
	}

	if config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}
	if config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyAnalysisComplete summarizes a finished pipeline run.
func (s *Service) NotifyAnalysisComplete(deal *models.Deal, subject *models.SubjectProperty) {
	message := fmt.Sprintf(
		"<b>Deal analysis complete</b>\n\n"+
			"🏠 %s, %s, %s\n"+
			"💰 ARV: %s\n"+
			"🔨 Renovation: %s\n"+
			"📈 Profit: %s\n"+
			"⚠️ Risk: %s",
		subject.Address,
		subject.Suburb,
		subject.City,
		formatARV(deal),
		formatMoney(deal.EstimatedRenovationCost),
		formatMoney(deal.CurrentProfit),
		formatRisk(deal),
	)

	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).Warn("Failed to send analysis notification")
	}
}

// NotifyAnalysisFailed reports a critical stage failure.
func (s *Service) NotifyAnalysisFailed(dealID int64, stage string, cause error) {
	message := fmt.Sprintf(
		"<b>Deal analysis failed</b>\n\n"+
			"Deal #%d halted during %s:\n%v",
		dealID, stage, cause,
	)
	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).Warn("Failed to send failure notification")
	}
}

func formatARV(deal *models.Deal) string {
	if ma, ok := deal.DecodedMarketAnalysis(); ok && ma.EstimatedARV != nil {
		return fmt.Sprintf("$%.0f (confidence %d%%)", *ma.EstimatedARV, ma.Confidence)
	}
	return "TBD"
}

func formatMoney(v *float64) string {
	if v == nil {
		return "TBD"
	}
	return fmt.Sprintf("$%.0f", *v)
}

func formatRisk(deal *models.Deal) string {
	if rs, ok := deal.DecodedRiskAssessment(); ok {
		return fmt.Sprintf("%s (%.0f/100)", rs.OverallLevel, rs.OverallScore)
	}
	if deal.CurrentRisk != "" {
		return deal.CurrentRisk
	}
	return "unassessed"
}
