package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ResearchDigest/internal/app"
	"ResearchDigest/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Slack bot and the update scheduler",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one research update for a stored configuration",
	Args:  cobra.NoArgs,
	RunE:  runOnce,
}

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Manage research configurations",
}

var configsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored configurations",
	Args:  cobra.NoArgs,
	RunE:  runConfigsList,
}

var configsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new configuration",
	Long:  `Stores a configuration; a running server picks it up on its next start.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigsAdd,
}

var configsUpdateCmd = &cobra.Command{
	Use:   "update [config-id]",
	Short: "Replace every field of a stored configuration",
	Long:  `Takes the same flags as add. A running server keeps the old trigger until its next start.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsUpdate,
}

var configsDeleteCmd = &cobra.Command{
	Use:   "delete [config-id]",
	Short: "Delete a configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsDelete,
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Suggest research topics from a Jira epic",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

var (
	runConfigID int64
	runChannel  string
	addCadence  string
	addLookback int
	addTopic    string
	addTopics   []string
	addChannel  string
	topicsEpic  string
)

func init() {
	runCmd.Flags().Int64Var(&runConfigID, "config-id", 0, "Configuration ID to run")
	runCmd.Flags().StringVar(&runChannel, "channel", "", "Deliver to this channel instead of the configured one")
	_ = runCmd.MarkFlagRequired("config-id")

	configFlags(configsAddCmd)
	configFlags(configsUpdateCmd)

	topicsCmd.Flags().StringVar(&topicsEpic, "epic", "", "Jira epic key")
	_ = topicsCmd.MarkFlagRequired("epic")

	configsCmd.AddCommand(configsListCmd)
	configsCmd.AddCommand(configsAddCmd)
	configsCmd.AddCommand(configsUpdateCmd)
	configsCmd.AddCommand(configsDeleteCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configsCmd)
	rootCmd.AddCommand(topicsCmd)
}

// configFlags binds the configuration fields shared by add and update.
func configFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&addCadence, "cadence", string(domain.CadenceDaily), "Update frequency: daily or weekly")
	cmd.Flags().IntVar(&addLookback, "lookback", 7, "Paper time range in days")
	cmd.Flags().StringVar(&addTopic, "topic", "", "Main research topic")
	cmd.Flags().StringSliceVar(&addTopics, "topics", nil, "Additional topics")
	cmd.Flags().StringVar(&addChannel, "channel", "", "Slack channel ID to post updates to")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("channel")
}

func configFromFlags() (domain.Configuration, error) {
	cadence, err := domain.ParseCadence(addCadence)
	if err != nil {
		return domain.Configuration{}, err
	}
	cfg := domain.Configuration{
		Cadence:          cadence,
		Lookback:         domain.LookbackDays(addLookback),
		Topic:            strings.TrimSpace(addTopic),
		AdditionalTopics: trimTopics(addTopics),
		Channel:          strings.TrimSpace(addChannel),
	}
	if err := cfg.Validate(); err != nil {
		return domain.Configuration{}, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.Application, log *slog.Logger) error {
		err := application.Serve(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		log.Info("shutting down")
		return nil
	})
}

func runOnce(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		return application.RunOnce(ctx, runConfigID, runChannel)
	})
}

func runConfigsList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		configs, err := application.Configs().List(ctx)
		if err != nil {
			return err
		}
		return printConfigs(cmd, configs)
	})
}

func runConfigsAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		saved, err := application.Configs().Create(ctx, cfg)
		if err != nil {
			return err
		}
		cmd.Printf("Saved configuration %d\n", saved.ID)
		return nil
	})
}

func runConfigsUpdate(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid configuration id %q", args[0])
	}
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		if _, err := application.Configs().Update(ctx, id, cfg); err != nil {
			return err
		}
		cmd.Printf("Updated configuration %d\n", id)
		return nil
	})
}

func runConfigsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid configuration id %q", args[0])
	}

	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		if err := application.Configs().Delete(ctx, id); err != nil {
			return err
		}
		cmd.Printf("Deleted configuration %d\n", id)
		return nil
	})
}

func runTopics(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, application *app.Application, _ *slog.Logger) error {
		topics, err := application.EpicTopics(ctx, topicsEpic)
		if err != nil {
			return err
		}
		if len(topics) == 0 {
			cmd.Printf("No topics found in epic %s\n", topicsEpic)
			return nil
		}
		for _, topic := range topics {
			cmd.Println(topic)
		}
		return nil
	})
}

func printConfigs(cmd *cobra.Command, configs []domain.Configuration) error {
	if len(configs) == 0 {
		cmd.Println("No configurations found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCADENCE\tDAYS\tCHANNEL\tTOPICS")
	for _, cfg := range configs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", cfg.ID, cfg.Cadence, cfg.Lookback, cfg.Channel, strings.Join(cfg.Topics(), ", "))
	}
	return w.Flush()
}

func trimTopics(values []string) []string {
	var topics []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			topics = append(topics, v)
		}
	}
	return topics
}
