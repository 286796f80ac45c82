package database

import (
	"database/sql"
	"fmt"

	"flipradar/server/internal/models"
)

// GetTelegramConfig returns the stored notification config, or nil when none
// has been saved yet.
func (d *Database) GetTelegramConfig() (*models.TelegramConfig, error) {
	var cfg models.TelegramConfig
	var updatedAt sql.NullTime

	err := d.db.QueryRow(`
		SELECT id, bot_token, chat_id, is_enabled, updated_at
		FROM telegram_config
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&cfg.ID, &cfg.BotToken, &cfg.ChatID, &cfg.IsEnabled, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram config: %w", err)
	}
	if updatedAt.Valid {
		cfg.UpdatedAt = updatedAt.Time
	}
	return &cfg, nil
}

// UpdateTelegramConfig replaces the stored notification config.
func (d *Database) UpdateTelegramConfig(req *models.TelegramConfigRequest) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM telegram_config"); err != nil {
		return fmt.Errorf("failed to clear telegram config: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO telegram_config (bot_token, chat_id, is_enabled)
		VALUES (?, ?, ?)
	`, req.BotToken, req.ChatID, req.IsEnabled); err != nil {
		return fmt.Errorf("failed to save telegram config: %w", err)
	}
	return tx.Commit()
}
