package main

import (
	"github.com/joho/godotenv"

	"auditeval/internal/cli"
)

func main() {
	// Secrets (GEMINI_API_KEY, OLLAMA_HOST) may live in a local .env;
	// absence is fine in deployed environments.
	_ = godotenv.Load()

	cli.Execute()
}
