/*
Copyright © 2025 prepstack
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/prepstack/qbank-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// Secrets (OPENAI_API_KEY, POSTGRES_DSN, ...) come from .env in dev;
	// a missing file is fine in container deployments.
	godotenv.Load()
}
