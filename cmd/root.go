package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/tgrelay/internal/config"
	"github.com/tanq16/tgrelay/internal/utils"
)

var (
	debug      bool
	configPath string
)

var AppVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "tgrelay",
	Short:   "tgrelay relays posts, links and videos into Telegram chats",
	Version: AppVersion,
	Long: `tgrelay runs a Telegram bot that copies media from posts the user session can read,
and from direct or video links, into private chats. Oversized files are split to fit the
upload ceiling.

Examples:
  tgrelay run --config tgrelay.yaml
  tgrelay split movie.mkv
  tgrelay extract movie.7z.001 ./out`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the layered configuration and starts console logging.
func loadConfig() *config.Config {
	if _, err := utils.InitLogger(debug, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file (env and .env still apply)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newSplitCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newCookiesCmd())
	rootCmd.AddCommand(newCleanCmd())
}
