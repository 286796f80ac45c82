package models

import "time"

// TelegramConfig holds the notification settings stored in the database
type TelegramConfig struct {
	ID        int64     `json:"id"`
	BotToken  string    `json:"bot_token"`
	ChatID    string    `json:"chat_id"`
	IsEnabled bool      `json:"is_enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TelegramConfigRequest is the API payload for updating the configuration
type TelegramConfigRequest struct {
	BotToken  string `json:"bot_token" binding:"required"`
	ChatID    string `json:"chat_id" binding:"required"`
	IsEnabled bool   `json:"is_enabled"`
}
