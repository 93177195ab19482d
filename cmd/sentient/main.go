// Package main is the entry point for the sentient CLI.
//
// Usage:
//
//	sentient [flags] <command> [args]
//
// Commands:
//
//	talk        - Interactive voice conversation
//	ask         - Text question with a streamed reply
//	transcribe  - Transcribe a WAV or MP3 file
//	config      - Configuration management
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/shawnjuqi/sentient/cmd/sentient/commands"
)

func main() {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
