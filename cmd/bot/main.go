// Package main is the entry point for the Albert assistant bot.
// @title Assistant Bot Admin API
// @version 1.0
// @description Administration endpoints of the Albert chat assistant: health, feature registry and allow-list.

// @contact.name API Support
// @contact.url https://github.com/unifiedui/assistant-bot

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Static admin bearer token
package main

import (
	"os"

	"github.com/unifiedui/assistant-bot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
