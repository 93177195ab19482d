package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shawnjuqi/sentient/pkg/chat"
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a text question and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		client := newChatClient(cfg)
		prompt := strings.Join(args, " ")

		done := make(chan error, 1)
		client.Start(prompt,
			func(tok string) { fmt.Print(tok) },
			func() { done <- nil },
			func(err error) { done <- err },
		)
		if err := <-done; err != nil {
			return err
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
