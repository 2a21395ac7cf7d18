package state

import (
	"context"

	"github.com/mizumono/yt-upload-notifier/model"
)

// VideoStore defines the durable-store operations used by the watcher,
// regardless of the underlying storage implementation.
type VideoStore interface {
	// LatestPublishedAt returns the publish time of the most recently
	// recorded upload for the channel, or an empty string when the channel
	// has no stored record.
	LatestPublishedAt(ctx context.Context, channelID string) (string, error)

	// RecordUploads durably records the uploads for the channel with a fresh
	// retention expiry. It returns the number of records actually written;
	// individual batch failures are logged and skipped.
	RecordUploads(ctx context.Context, channelID, channelName string, uploads []model.Upload) (int, error)

	// Maintenance operations, invoked out of band via the CLI.
	PurgeAll(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]model.VideoRecord, error)
	DescribeSchema(ctx context.Context) (string, error)
}

// Config contains common configuration for store implementations.
type Config struct {
	// Region and TableName locate the backing table.
	Region    string
	TableName string

	// RetentionDays bounds how long a record stays visible before the
	// store's TTL mechanism reaps it.
	RetentionDays int
}
