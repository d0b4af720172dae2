package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ligun0805/caps-transfer/internal/config"
)

const (
	FlagInput     = "input"
	FlagWS        = "ws"
	FlagDecimals  = "decimals"
	FlagEstimator = "estimator"
	FlagFrom      = "from"
	FlagExtension = "extension"
	FlagMnemonic  = "mnemonic-env"
	FlagKeyScheme = "key-scheme"
	FlagAccount   = "account"
	FlagYes       = "yes"
	FlagOutOK     = "out-ok"
	FlagOutBad    = "out-bad"
	FlagPaceMS    = "pace-ms"
	FlagLogLevel  = "log-level"
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	opts := &cliOptions{settings: config.Load()}

	rootCmd := &cobra.Command{
		Use:           "capscli",
		Short:         "Batch CAPS transfers from a CSV or JSON recipient list",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.settings.LogLevel)
		},
	}
	opts.bindGlobal(rootCmd)

	rootCmd.AddCommand(
		simulateCmd(opts),
		sendCmd(opts),
		accountsCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)
	return nil
}
