// Command yt-upload-notifier checks a tracked set of YouTube channels for new
// long-form uploads, records them durably and posts a summary to Slack. It is
// designed to run as a scheduled batch job; optional flags switch it into
// store-maintenance mode instead of the regular run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mizumono/yt-upload-notifier/channels"
	"github.com/mizumono/yt-upload-notifier/client"
	"github.com/mizumono/yt-upload-notifier/common"
	"github.com/mizumono/yt-upload-notifier/crawl"
	"github.com/mizumono/yt-upload-notifier/notify"
	"github.com/mizumono/yt-upload-notifier/state"
)

type maintenanceFlags struct {
	clearTable     bool
	listItems      bool
	describeSchema bool
}

func (f maintenanceFlags) active() bool {
	return f.clearTable || f.listItems || f.describeSchema
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &maintenanceFlags{}

	cmd := &cobra.Command{
		Use:           "yt-upload-notifier",
		Short:         "Watch YouTube channels for new long-form uploads and notify Slack",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), *flags)
		},
	}

	cmd.Flags().BoolVar(&flags.clearTable, "clear-table", false, "delete every stored video record and exit")
	cmd.Flags().BoolVar(&flags.listItems, "list-items", false, "print every stored video record and exit")
	cmd.Flags().BoolVar(&flags.describeSchema, "describe-schema", false, "print the store schema and exit")

	return cmd
}

func execute(ctx context.Context, flags maintenanceFlags) error {
	cfg, err := common.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	factory := &state.DefaultStoreFactory{}
	store, err := factory.Create(ctx, state.Config{
		Region:        cfg.AWSRegion,
		TableName:     cfg.TableName,
		RetentionDays: cfg.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("failed to create video store: %w", err)
	}

	if flags.active() {
		return runMaintenance(ctx, store, flags)
	}

	return runWatch(ctx, cfg, store)
}

// runWatch wires the collaborators and executes the regular scheduled run.
// A run-level fatal error is reported to the notification sink before it is
// surfaced to the scheduler through a non-zero exit.
func runWatch(ctx context.Context, cfg common.WatcherConfig, store state.VideoStore) error {
	api, err := client.NewYouTubeDataClient(cfg.YouTubeAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}
	if err := api.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := api.Disconnect(ctx); derr != nil {
			log.Warn().Err(derr).Msg("Failed to disconnect YouTube client")
		}
	}()

	source, err := channels.NewSanitySource(cfg.SanityProjectID, cfg.SanityDataset, cfg.SanityAPIToken)
	if err != nil {
		return fmt.Errorf("failed to create channel-list source: %w", err)
	}

	notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL)

	deps := crawl.Deps{
		API:      api,
		Source:   source,
		Store:    store,
		Notifier: notifier,
	}

	if _, err := crawl.Run(ctx, deps, cfg); err != nil {
		if nerr := notifier.RunFailed(ctx, err); nerr != nil {
			log.Warn().Err(nerr).Msg("Failed to send run-failed notification")
		}
		return err
	}

	return nil
}

// runMaintenance executes the selected administrative operations against the
// store and exits without touching the regular pipeline.
func runMaintenance(ctx context.Context, store state.VideoStore, flags maintenanceFlags) error {
	if flags.clearTable {
		deleted, err := store.PurgeAll(ctx)
		if err != nil {
			return fmt.Errorf("clear-table failed: %w", err)
		}
		fmt.Printf("deleted %d records\n", deleted)
	}

	if flags.listItems {
		records, err := store.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list-items failed: %w", err)
		}
		fmt.Printf("%d stored records\n", len(records))
		for i, record := range records {
			expires := time.Unix(record.ExpiresAt, 0).UTC().Format(time.RFC3339)
			fmt.Printf("[%d] channel=%q title=%q published=%s video=%s expires=%s\n",
				i+1, record.ChannelName, record.Title, record.PublishedAt, record.VideoID, expires)
		}
	}

	if flags.describeSchema {
		desc, err := store.DescribeSchema(ctx)
		if err != nil {
			return fmt.Errorf("describe-schema failed: %w", err)
		}
		fmt.Println(desc)
	}

	return nil
}
