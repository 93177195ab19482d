package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shawnjuqi/sentient/cmd/sentient/internal/config"
)

var (
	// Global flags
	verbose bool

	// Global configuration (loaded at init time)
	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "sentient",
	Short: "Voice-to-assistant pipeline",
	Long: `sentient - record speech, transcribe it, and stream an AI reply.

The pipeline is: microphone capture -> canonical 16 kHz mono audio ->
transcription backend -> streaming chat completion, token by token.

Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/sentient/config.yaml
  Linux:   ~/.config/sentient/config.yaml
  Windows: %AppData%/sentient/config.yaml

Environment variables (SENTIENT_API_KEY, SENTIENT_BASE_URL, ...) override
file values; a .env file in the working directory is honored.

Examples:
  # One-shot text question with a streamed reply
  sentient ask "what is the weather like on Mars?"

  # Interactive voice conversation
  sentient talk

  # Transcribe an audio file
  sentient transcribe clip.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		// Defer the error: commands that need config get it via
		// GetConfig(), commands like 'version' keep working.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// GetConfig returns the global configuration, or the deferred load error.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		return nil, configLoadErr
	}
	return globalConfig, nil
}

// IsVerbose reports whether --verbose was set.
func IsVerbose() bool {
	return verbose
}
