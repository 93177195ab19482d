package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shawnjuqi/sentient/cmd/sentient/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
		if err := config.Default().Save(); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", labelStyle.Render("base_url:"), cfg.BaseURL)
		fmt.Printf("%s %s\n", labelStyle.Render("model:"), cfg.Model)
		fmt.Printf("%s %s\n", labelStyle.Render("api_key:"), maskKey(cfg.APIKey))
		fmt.Printf("%s %s\n", labelStyle.Render("transcribe_url:"), cfg.TranscribeURL)
		if cfg.TranscribeWS != "" {
			fmt.Printf("%s %s\n", labelStyle.Render("transcribe_ws:"), cfg.TranscribeWS)
		}
		fmt.Printf("%s %d\n", labelStyle.Render("sample_rate:"), cfg.SampleRate)
		fmt.Printf("%s %g\n", labelStyle.Render("temperature:"), cfg.Temperature)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

// maskKey hides all but the first and last few characters of a credential.
func maskKey(key string) string {
	if key == "" {
		return statusStyle.Render("(not set)")
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
