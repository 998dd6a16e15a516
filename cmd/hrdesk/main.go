package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tbxark/hrdesk/config"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:   "hrdesk",
		Short: "Company assistant that turns HR requests into forms and tickets",
		Long: `hrdesk answers employee questions and, when a request needs
structured data, shows a generated form and files a support ticket
once it is submitted.

Run "hrdesk serve" for the web chat or "hrdesk chat" for the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to config file")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		chatCmd(&configPath),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the default logger.
func loadConfig(path string) (*config.Config, error) {
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level, _ := config.ParseLevel(conf.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return conf, nil
}
