package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	guerrillamail "github.com/guerrillamail/client-go"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "guerrillamail",
		Short:         "guerrillamail creates and reads disposable GuerrillaMail inboxes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.configPath, "config", defaultConfigPath, "Configuration file; a .local variant next to it overrides it.")
	flags.StringVar(&a.flags.proxy, "proxy", "", "Proxy URL for every request.")
	flags.StringVar(&a.flags.userAgent, "user-agent", "", "User-Agent header to send.")
	flags.StringVar(&a.flags.ajaxURL, "ajax-url", "", "AJAX endpoint URL.")
	flags.StringVar(&a.flags.baseURL, "base-url", "", "Landing page URL the session token is read from.")
	flags.BoolVar(&a.flags.strictTLS, "strict-tls", false, "Verify TLS certificates.")
	flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log requests at debug level.")
	flags.BoolVar(&a.flags.json, "json", false, "Print JSON instead of tables.")

	root.AddCommand(
		newCreateCmd(a),
		newListCmd(a),
		newReadCmd(a),
		newDeleteCmd(a),
		newWaitCmd(a),
	)
	return root
}

// randomAlias returns an alias for create when none is given.
func randomAlias() string {
	return "gm" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create [alias]",
		Short: "Creates an address and prints the one the service assigned.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := randomAlias()
			if len(args) == 1 {
				alias = args[0]
			}

			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			address, err := client.CreateEmail(cmd.Context(), alias)
			if err != nil {
				return fmt.Errorf("create address: %w", err)
			}

			if a.flags.json {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"address": address})
			}
			fmt.Fprintln(cmd.OutOrStdout(), address)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <address>",
		Short: "Lists the messages in an inbox.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			messages, err := client.GetMessages(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("list messages: %w", err)
			}

			if a.flags.json {
				return writeJSON(cmd.OutOrStdout(), convertMessages(messages))
			}
			renderMessages(cmd.OutOrStdout(), messages)
			return nil
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <address> <id>...",
		Short: "Fetches one or more messages and prints their text.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			address, ids := args[0], args[1:]
			details := make([]*guerrillamail.EmailDetails, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, id := range ids {
				g.Go(func() error {
					d, err := client.FetchEmail(ctx, address, id)
					if err != nil {
						return fmt.Errorf("fetch message %s: %w", id, err)
					}
					details[i] = d
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if a.flags.json {
				return writeJSON(cmd.OutOrStdout(), convertDetails(details))
			}
			for i, d := range details {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				renderDetails(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Asks the service to forget an address.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := client.DeleteEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete address: %w", err)
			}

			if a.flags.json {
				return writeJSON(cmd.OutOrStdout(), map[string]bool{"success": ok})
			}
			if !ok {
				return fmt.Errorf("service refused to forget %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[0])
			return nil
		},
	}
}

func newWaitCmd(a *app) *cobra.Command {
	var (
		subject string
		from    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait <address>",
		Short: "Waits for a matching message and prints it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}

			opts := []guerrillamail.WaitOption{guerrillamail.WithWaitTimeout(timeout)}
			if subject != "" {
				opts = append(opts, guerrillamail.WithSubject(subject))
			}
			if from != "" {
				opts = append(opts, guerrillamail.WithFrom(from))
			}

			msg, err := client.Inbox(args[0]).WaitForMessage(cmd.Context(), opts...)
			if err != nil {
				return fmt.Errorf("wait for message: %w", err)
			}

			if a.flags.json {
				return writeJSON(cmd.OutOrStdout(), convertMessage(*msg))
			}
			renderMessages(cmd.OutOrStdout(), []guerrillamail.Message{*msg})
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Exact subject to wait for.")
	cmd.Flags().StringVar(&from, "from", "", "Exact sender to wait for.")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "How long to wait.")
	return cmd
}
