package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shawnjuqi/sentient/pkg/audio/accum"
	"github.com/shawnjuqi/sentient/pkg/audio/pcm"
	"github.com/shawnjuqi/sentient/pkg/capture/mediafile"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe a WAV or MP3 file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		format, data, err := mediafile.Decode(args[0])
		if err != nil {
			return err
		}

		// Run the file through the same normalization path a live
		// recording takes.
		a := accum.New()
		a.Process(pcm.Frame{Format: format, Data: data})
		samples := a.Drain()
		if len(samples) == 0 {
			return fmt.Errorf("no audio decoded from %s", args[0])
		}
		if IsVerbose() {
			fmt.Println(statusStyle.Render(fmt.Sprintf("decoded %s: %v, %d canonical samples", args[0], format, len(samples))))
		}

		text, err := newEngine(cfg).Transcribe(cmd.Context(), samples)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
}
