package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Credentials are loaded from the environment, never from the config
// file. A .env file in the working directory is honored when present.
type Credentials struct {
	BrokerUsername string
	BrokerPassword string
	TelegramToken  string
	TelegramChatID string
}

// LoadCredentials reads credentials from the environment. Broker
// credentials are required unless paper mode is set; telegram settings
// are optional (notifications fall back to the log).
func LoadCredentials(paper bool) (Credentials, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	c := Credentials{
		BrokerUsername: os.Getenv("DXLINK_USERNAME"),
		BrokerPassword: os.Getenv("DXLINK_PASSWORD"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
	}

	if !paper {
		if c.BrokerUsername == "" || c.BrokerPassword == "" {
			return c, fmt.Errorf("DXLINK_USERNAME and DXLINK_PASSWORD must be set")
		}
	}
	if c.TelegramToken != "" && c.TelegramChatID == "" {
		return c, fmt.Errorf("TELEGRAM_CHAT_ID must be set when TELEGRAM_TOKEN is")
	}
	return c, nil
}
