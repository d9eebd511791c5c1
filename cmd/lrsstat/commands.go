package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lrs-tracker/internal/client"
	"lrs-tracker/internal/models"
)

// envPrefix is the environment variable prefix for lrsstat settings.
const envPrefix = "LRSSTAT"

// Flag names, also the viper keys.
const (
	flagServer       = "server"
	flagClientID     = "client-id"
	flagClientSecret = "client-secret"
	flagStore        = "store"
	flagTimeout      = "timeout"
	flagStart        = "start"
	flagEnd          = "end"
	flagHeight       = "height"
)

// options are the resolved connection settings.
type options struct {
	Server       string
	ClientID     string
	ClientSecret string
	Store        string
	Timeout      time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(flagServer, "http://localhost:8080")
	v.SetDefault(flagTimeout, 30*time.Second)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadOptions(v *viper.Viper) (options, error) {
	opts := options{
		Server:       v.GetString(flagServer),
		ClientID:     v.GetString(flagClientID),
		ClientSecret: v.GetString(flagClientSecret),
		Store:        v.GetString(flagStore),
		Timeout:      v.GetDuration(flagTimeout),
	}
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return options{}, fmt.Errorf("client credentials required: set --%s/--%s or %s_CLIENT_ID/%s_CLIENT_SECRET",
			flagClientID, flagClientSecret, envPrefix, envPrefix)
	}
	return opts, nil
}

func newRootCommand() *cobra.Command {
	v := newViper()

	rootCmd := &cobra.Command{
		Use:   "lrsstat",
		Short: "Statement statistics from an LRS dashboard server",
		Long: `lrsstat queries the dashboard API with OAuth2 client credentials.

Without --store the global figures are shown, which needs a super client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagServer, "http://localhost:8080", "dashboard server base URL")
	flags.String(flagClientID, "", "OAuth2 client id")
	flags.String(flagClientSecret, "", "OAuth2 client secret")
	flags.String(flagStore, "", "LRS id; empty for all stores")
	flags.Duration(flagTimeout, 30*time.Second, "request timeout")
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(
		newStatsCommand(v),
		newGraphCommand(v),
		newActorsCommand(v),
		newStoresCommand(v),
	)
	return rootCmd
}

// connect resolves options and builds an API client.
func connect(ctx context.Context, v *viper.Viper) (*client.Client, options, error) {
	opts, err := loadOptions(v)
	if err != nil {
		return nil, options{}, err
	}
	c, err := client.New(ctx, client.Config{
		BaseURL:      opts.Server,
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Timeout:      opts.Timeout,
	})
	if err != nil {
		return nil, options{}, err
	}
	return c, opts, nil
}

func newStatsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the statement total and average per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, opts, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			stats, err := c.Stats(cmd.Context(), opts.Store)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newGraphCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show statements and distinct actors per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end := v.GetString(flagStart), v.GetString(flagEnd)
			for _, d := range []string{start, end} {
				if d == "" {
					continue
				}
				if _, err := time.Parse(models.DayFormat, d); err != nil {
					return fmt.Errorf("invalid date %q, want YYYY-MM-DD", d)
				}
			}

			c, opts, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			graph, err := c.Graph(cmd.Context(), opts.Store, start, end)
			if err != nil {
				return err
			}
			renderGraph(cmd.OutOrStdout(), graph, v.GetInt(flagHeight))
			return nil
		},
	}

	cmd.Flags().String(flagStart, "", "first day, YYYY-MM-DD (default: a week before end)")
	cmd.Flags().String(flagEnd, "", "last day, YYYY-MM-DD (default: today)")
	cmd.Flags().Int(flagHeight, 10, "chart height in rows")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func newActorsCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "actors",
		Short: "Show the number of distinct actors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, opts, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			actors, err := c.Actors(cmd.Context(), opts.Store)
			if err != nil {
				return err
			}
			renderActors(cmd.OutOrStdout(), actors)
			return nil
		},
	}
}

func newStoresCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stores [query]",
		Short: "List the LRS instances visible to the client",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := connect(cmd.Context(), v)
			if err != nil {
				return err
			}
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			stores, err := c.Stores(cmd.Context(), query)
			if err != nil {
				return err
			}
			renderStores(cmd.OutOrStdout(), stores)
			return nil
		},
	}
}
