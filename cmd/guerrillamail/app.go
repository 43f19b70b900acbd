package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	guerrillamail "github.com/guerrillamail/client-go"
	"github.com/guerrillamail/client-go/internal/config"
	"github.com/guerrillamail/client-go/internal/telemetry"
)

const (
	defaultConfigPath = "guerrillamail.json5"
	serviceName       = "guerrillamail-cli"
)

// fileConfig is the layout of guerrillamail.json5. Durations use Go syntax,
// e.g. "30s".
type fileConfig struct {
	Proxy        string           `json:"proxy"`
	UserAgent    string           `json:"user_agent"`
	AjaxURL      string           `json:"ajax_url"`
	BaseURL      string           `json:"base_url"`
	StrictTLS    bool             `json:"strict_tls"`
	Timeout      string           `json:"timeout"`
	PollInterval string           `json:"poll_interval"`
	Telemetry    telemetry.Config `json:"telemetry"`
}

// options converts the file settings to client options.
func (fc fileConfig) options() ([]guerrillamail.Option, error) {
	var opts []guerrillamail.Option
	if fc.Proxy != "" {
		opts = append(opts, guerrillamail.WithProxy(fc.Proxy))
	}
	if fc.UserAgent != "" {
		opts = append(opts, guerrillamail.WithUserAgent(fc.UserAgent))
	}
	if fc.AjaxURL != "" {
		opts = append(opts, guerrillamail.WithAjaxURL(fc.AjaxURL))
	}
	if fc.BaseURL != "" {
		opts = append(opts, guerrillamail.WithBaseURL(fc.BaseURL))
	}
	if fc.StrictTLS {
		opts = append(opts, guerrillamail.WithAcceptInvalidCerts(false))
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config timeout: %w", err)
		}
		opts = append(opts, guerrillamail.WithTimeout(d))
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("config poll_interval: %w", err)
		}
		opts = append(opts, guerrillamail.WithPollInterval(d))
	}
	return opts, nil
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	proxy      string
	userAgent  string
	ajaxURL    string
	baseURL    string
	strictTLS  bool
	verbose    bool
	json       bool
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfg    Config
	flags  globalFlags
	file   fileConfig
	logger *slog.Logger
	tel    telemetry.Telemetry
	client *guerrillamail.Client
}

// setup loads the configuration file, applies flag overrides and installs
// logging and telemetry. Flags win over the file.
func (a *app) setup(cmd *cobra.Command) error {
	a.logger = telemetry.NewLogger(a.cfg.Stderr, a.flags.verbose)
	slog.SetDefault(a.logger)

	fc, err := config.Read[fileConfig](a.flags.configPath)
	switch {
	case err == nil:
		a.logger.Debug("loaded config", "path", a.flags.configPath)
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		// No config file is fine unless one was asked for.
	default:
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("proxy") {
		fc.Proxy = a.flags.proxy
	}
	if flags.Changed("user-agent") {
		fc.UserAgent = a.flags.userAgent
	}
	if flags.Changed("ajax-url") {
		fc.AjaxURL = a.flags.ajaxURL
	}
	if flags.Changed("base-url") {
		fc.BaseURL = a.flags.baseURL
	}
	if flags.Changed("strict-tls") {
		fc.StrictTLS = a.flags.strictTLS
	}
	a.file = fc

	a.tel, err = telemetry.Setup(cmd.Context(), serviceName, fc.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	return nil
}

// connect opens the session on first use.
func (a *app) connect(ctx context.Context) (*guerrillamail.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.file.options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, guerrillamail.WithLogger(a.logger))
	if a.tel.TracerProvider != nil {
		opts = append(opts, guerrillamail.WithTracerProvider(a.tel.TracerProvider))
	}
	if a.tel.MeterProvider != nil {
		opts = append(opts, guerrillamail.WithMeterProvider(a.tel.MeterProvider))
	}

	client, err := guerrillamail.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	a.client = client
	return client, nil
}

// close releases the session and flushes telemetry.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	errs = append(errs, a.tel.Shutdown(ctx))
	return errors.Join(errs...)
}
