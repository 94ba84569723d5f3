// Package cli implements the textpress command line client.
package cli

import (
	"os"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/client"
	"github.com/MattB543/textpress-matt-test/internal/config"
	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/pkg/logger"

	"github.com/spf13/cobra"
)

const defaultAPIBaseURL = "http://localhost:8080/api"

type options struct {
	apiBaseURL            string
	timeout               time.Duration
	logLevel              string
	maxConcurrentConverts int
	maxFileSize           int64
	maxTextSize           int64
}

// NewRootCmd builds the command tree with defaults taken from the environment.
func NewRootCmd() *cobra.Command {
	cfg := config.NewConfig()
	opts := &options{
		apiBaseURL:            cfg.GetAPIBaseURL(),
		timeout:               cfg.GetConvertTimeout(),
		logLevel:              "warn",
		maxConcurrentConverts: cfg.GetMaxConcurrentConverts(),
		maxFileSize:           cfg.GetMaxFileSize(),
		maxTextSize:           cfg.GetMaxTextSize(),
	}
	if opts.apiBaseURL == "" {
		opts.apiBaseURL = defaultAPIBaseURL
	}

	rootCmd := &cobra.Command{
		Use:           "textpress",
		Short:         "Publish files, text and web pages as shareable documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.apiBaseURL, "api", opts.apiBaseURL, "Backend API base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "Timeout for each convert and combine call")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConvertCmd(opts))
	rootCmd.AddCommand(newCombineCmd(opts))
	return rootCmd
}

func (o *options) newLogger() domain.Logger {
	return logger.New(o.logLevel, "text", os.Stderr)
}

func (o *options) newClient(log domain.Logger) (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:     o.apiBaseURL,
		MaxFileSize: o.maxFileSize,
		MaxTextSize: o.maxTextSize,
		Logger:      log,
	})
}
