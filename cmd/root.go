package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/config"
	"github.com/usgs/sbgo/sciencebase"
)

// Commands carrying this annotation run without config or a catalog session
const offlineAnnotation = "offline"

var (
	cfgFile      string
	envName      string
	outputFormat string
	useRetry     bool

	cfg    *config.Config
	logger zerolog.Logger
	client *sciencebase.Client
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sb",
	Short: "A command line client for the ScienceBase catalog",
	Long: `sb reads and writes ScienceBase catalog items: search, create, update,
move and delete items, and upload or download their files.

Credentials come from the config file or SB_AUTH_USERNAME/SB_AUTH_PASSWORD.
When only a username is set, sb prompts for the password.`,
	SilenceUsage:      true,
	PersistentPreRunE: initializeApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, ~/.sbgo/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "catalog environment: production, beta or dev")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().BoolVar(&useRetry, "retry", false, "wait out rate limiting and WAF responses")
}

// initializeApp loads the configuration, sets up logging and opens a catalog session
func initializeApp(cmd *cobra.Command, args []string) error {
	if _, ok := cmd.Annotations[offlineAnnotation]; ok {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return nil
	}

	if outputFormat != "json" && outputFormat != "yaml" {
		return fmt.Errorf("invalid output format: %s (must be 'json' or 'yaml')", outputFormat)
	}

	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command line overrides
	if cmd.Flags().Changed("env") {
		cfg.Environment = envName
	}
	if useRetry {
		cfg.Retry.Enabled = true
	}

	logger = setupLogger(cfg.Logging)

	env, err := cfg.ParsedEnvironment()
	if err != nil {
		return err
	}

	client, err = sciencebase.NewClient(env, logger, cfg.ClientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create ScienceBase client: %w", err)
	}

	return login(cmd.Context())
}

// login opens a session when a username is configured. Without a password
// it prompts, as long as there is a terminal to prompt on.
func login(ctx context.Context) error {
	username := cfg.Auth.Username
	if username == "" {
		logger.Debug().Msg("No username configured, continuing anonymously")
		return nil
	}

	if cfg.Auth.Password != "" {
		_, err := call(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, client.Login(ctx, username, cfg.Auth.Password)
		})
		return err
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return errors.New("auth.password is not set and stdin is not a terminal")
	}
	return client.LoginInteractive(ctx, username)
}

// call runs fn, through the client's retry policy when retrying is enabled
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if cfg != nil && cfg.Retry.Enabled {
		return sciencebase.RetryValue(ctx, client, fn)
	}
	return fn(ctx)
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "trace":
		level = zerolog.TraceLevel
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format, colored only on a terminal
	fd := os.Stderr.Fd()
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
