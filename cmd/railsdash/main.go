// Package main is the entrypoint for the railsdash operator CLI.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/MacJediWizard/railsdash/internal/auth"
	"github.com/MacJediWizard/railsdash/internal/config"
	"github.com/MacJediWizard/railsdash/internal/dashboard"
	"github.com/MacJediWizard/railsdash/internal/railsr"
	"github.com/MacJediWizard/railsdash/internal/webhooks"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	configPath string
	verbose    bool
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "railsdash",
		Short: "Railsr program operations from the command line",
		Long: `railsdash talks to the Railsr API with the credentials stored in
~/.railsdash/config.yml or given through RAILSR_* environment variables.

Run 'railsdash configure' to store credentials.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.railsdash/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log upstream requests")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print raw JSON instead of tables")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigureCmd(opts),
		newCheckCmd(opts),
		newStatsCmd(opts),
		newCustomersCmd(opts),
		newAccountsCmd(opts),
		newCardsCmd(opts),
		newTransactionsCmd(opts),
		newWebhooksCmd(opts),
		newHashPasswordCmd(),
		newSignWebhookCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("railsdash %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (o *globalOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file and applies environment overrides.
func (o *globalOptions) loadConfig() (*config.CLIConfig, error) {
	path, err := o.path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func (o *globalOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// clients builds resource clients from a validated configuration.
func (o *globalOptions) clients() (*railsr.Clients, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (run 'railsdash configure')", err)
	}

	creds := cfg.Credentials()
	if o.verbose {
		creds.Debug = true
	}
	logger := o.logger()
	client, err := railsr.NewClient(railsr.ClientConfig{Credentials: creds, Proxy: cfg.Proxy}, logger)
	if err != nil {
		return nil, err
	}
	return railsr.NewClients(client, logger), nil
}

// commandTimeout bounds a single command including all of its upstream calls.
const commandTimeout = 2 * time.Minute

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func newConfigureCmd(opts *globalOptions) *cobra.Command {
	var (
		apiKey    string
		programID string
		baseURL   string
		timeout   string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Store Railsr credentials",
		Long: `Store Railsr credentials in the config file.

Values not given as flags are prompted for. The API key is never echoed back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.path()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			reader := bufio.NewReader(cmd.InOrStdin())
			if apiKey == "" {
				if apiKey, err = prompt(reader, cmd.OutOrStdout(), "API key"); err != nil {
					return err
				}
			}
			if programID == "" {
				if programID, err = prompt(reader, cmd.OutOrStdout(), "Program ID"); err != nil {
					return err
				}
			}

			cfg.APIKey = apiKey
			cfg.ProgramID = programID
			if baseURL != "" {
				cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
			}
			if timeout != "" {
				cfg.Timeout = timeout
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'railsdash check' to verify the connection.")
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "Railsr API key")
	cmd.Flags().StringVar(&programID, "program-id", "", "Railsr program ID")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Railsr API base URL")
	cmd.Flags().StringVar(&timeout, "timeout", "", "request timeout, e.g. 10s")

	return cmd
}

func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprintf(w, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s cannot be empty", label)
	}
	return line, nil
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the credentials against the program endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := opts.clients()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			result := clients.Program.TestConnection(ctx)
			if !result.Success {
				return fmt.Errorf("connection failed (%s): %s", result.Kind, result.Error)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Connection OK")
			if result.Data != nil {
				fmt.Fprintf(out, "  Program: %s (%s)\n", result.Data.Name, result.Data.ID)
				fmt.Fprintf(out, "  Status:  %s\n", result.Data.Status)
			}
			return nil
		},
	}
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var mock bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := opts.logger()
			client, err := railsr.NewClient(railsr.ClientConfig{Credentials: cfg.Credentials(), Proxy: cfg.Proxy}, logger)
			if err != nil {
				return err
			}
			agg := dashboard.NewAggregator(dashboard.NewClientSource(railsr.NewClients(client, logger)), dashboard.AggregatorConfig{
				Configured:  client.Configured(),
				UseMockData: mock,
			}, logger)

			ctx, cancel := commandContext()
			defer cancel()
			result := agg.Stats(ctx)
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printStats(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "print the mock dataset without calling the API")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for ADMIN_PASSWORD_HASH",
		Long: `Read a password from stdin and print its bcrypt hash, suitable for the
server's ADMIN_PASSWORD_HASH environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := prompt(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password")
			if err != nil {
				return err
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newSignWebhookCmd() *cobra.Command {
	var (
		secret string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "sign-webhook",
		Short: "Compute the signature header for a webhook payload",
		Long: `Compute the X-Railsr-Signature value for a payload read from --file or stdin.
Useful for sending test deliveries to the server's /api/webhooks endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("WEBHOOK_SECRET")
			}
			if secret == "" {
				return errors.New("--secret or WEBHOOK_SECRET is required")
			}

			var (
				payload []byte
				err     error
			)
			if file != "" {
				payload, err = os.ReadFile(file)
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", webhooks.SignatureHeader, webhooks.Sign([]byte(secret), payload))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "webhook signing secret")
	cmd.Flags().StringVar(&file, "file", "", "payload file (default stdin)")
	return cmd
}
