package main

import (
	"github.com/joho/godotenv"

	"github.com/comigor/neura-go/cmd/neura/commands"
	"github.com/comigor/neura-go/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.L.Debug("no .env file found, using environment variables")
	}
	commands.Execute()
}
