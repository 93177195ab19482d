package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shawnjuqi/sentient/cmd/sentient/internal/config"
	"github.com/shawnjuqi/sentient/pkg/assistant"
	"github.com/shawnjuqi/sentient/pkg/capture/mediafile"
	"github.com/shawnjuqi/sentient/pkg/capture/portaudio"
	"github.com/shawnjuqi/sentient/pkg/chat"
	"github.com/shawnjuqi/sentient/pkg/transcribe"
)

var talkFile string

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Interactive voice conversation",
	Long: `Start an interactive record/transcribe/reply loop.

Press Enter to start recording, Enter again to stop; the transcription is
sent to the assistant and the reply streams in token by token. 'c' cancels
the in-flight cycle, 'q' quits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		var source assistant.CaptureSource
		if talkFile != "" {
			source = mediafile.New(talkFile)
		} else {
			source = portaudio.New(portaudio.Config{SampleRate: cfg.SampleRate})
		}

		ctrl, err := assistant.New(assistant.Config{
			Capture:  source,
			Engine:   newEngine(cfg),
			Streamer: newChatClient(cfg),
			Hooks: assistant.Hooks{
				StateChanged: func(s assistant.State) {
					fmt.Println(statusStyle.Render("[" + s.String() + "]"))
				},
				Token: func(tok string) {
					fmt.Print(tok)
				},
				Failure: func(e *assistant.Error) {
					fmt.Println(errorStyle.Render("error: " + e.Message()))
				},
			},
		})
		if err != nil {
			return err
		}
		defer ctrl.Close()

		fmt.Println(labelStyle.Render("sentient") + statusStyle.Render("  Enter: record/stop  c: cancel  q: quit"))

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			switch scanner.Text() {
			case "q":
				return nil
			case "c":
				ctrl.ClearAll()
			case "":
				if ctrl.State() == assistant.StateRecording {
					if err := ctrl.StopRecording(); err != nil {
						continue // already reported via the failure hook
					}
				} else {
					if err := ctrl.StartRecording(); err != nil {
						continue
					}
				}
			}
		}
		return scanner.Err()
	},
}

// newChatClient builds the streaming client from the CLI configuration.
func newChatClient(cfg *config.Config) *chat.Client {
	return chat.NewClient(cfg.APIKey,
		chat.WithBaseURL(cfg.BaseURL),
		chat.WithModel(cfg.Model),
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithTemperature(cfg.Temperature),
	)
}

// newEngine builds the transcription engine from the CLI configuration:
// the websocket streaming backend when configured, the HTTP backend
// otherwise.
func newEngine(cfg *config.Config) transcribe.Engine {
	if cfg.TranscribeWS != "" {
		return transcribe.NewStreamEngine(cfg.TranscribeWS)
	}
	return transcribe.NewHTTPEngine(cfg.TranscribeURL)
}

func init() {
	talkCmd.Flags().StringVarP(&talkFile, "file", "f", "", "replay an audio file instead of capturing the microphone")
	rootCmd.AddCommand(talkCmd)
}
