// Package common holds configuration and small shared helpers.
package common

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// WatcherConfig carries every tunable for a run. All values come from the
// environment; the zero-config case works against the production defaults.
type WatcherConfig struct {
	YouTubeAPIKey   string
	SlackWebhookURL string

	SanityProjectID string
	SanityDataset   string
	SanityAPIToken  string

	AWSRegion string
	TableName string

	MaxPlaylistPages     int
	MaxDiscoveredItems   int
	MaxResultsPerChannel int
	ShortsMaxSeconds     int
	RetentionDays        int
	ChannelTimeout       time.Duration
}

// LoadConfig reads the watcher configuration from the environment.
// YOUTUBE_API_KEY is the only hard requirement; the Slack and Sanity
// credentials degrade to no-op collaborators when absent, which the
// respective clients log and tolerate.
func LoadConfig() (WatcherConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("AWS_REGION", "ap-northeast-1")
	v.SetDefault("DDB_TABLE_NAME", "YouTubeChannelVideos")
	v.SetDefault("SANITY_DATASET", "production")
	v.SetDefault("MAX_PLAYLIST_PAGES", 3)
	v.SetDefault("MAX_DISCOVERED_ITEMS", 150)
	v.SetDefault("MAX_RESULTS_PER_CHANNEL", 10)
	v.SetDefault("SHORTS_MAX_SECONDS", 60)
	v.SetDefault("RETENTION_DAYS", 7)
	v.SetDefault("CHANNEL_TIMEOUT_SECONDS", 120)

	cfg := WatcherConfig{
		YouTubeAPIKey:        v.GetString("YOUTUBE_API_KEY"),
		SlackWebhookURL:      v.GetString("SLACK_WEBHOOK_URL"),
		SanityProjectID:      v.GetString("SANITY_PROJECT_ID"),
		SanityDataset:        v.GetString("SANITY_DATASET"),
		SanityAPIToken:       v.GetString("SANITY_API_TOKEN"),
		AWSRegion:            v.GetString("AWS_REGION"),
		TableName:            v.GetString("DDB_TABLE_NAME"),
		MaxPlaylistPages:     v.GetInt("MAX_PLAYLIST_PAGES"),
		MaxDiscoveredItems:   v.GetInt("MAX_DISCOVERED_ITEMS"),
		MaxResultsPerChannel: v.GetInt("MAX_RESULTS_PER_CHANNEL"),
		ShortsMaxSeconds:     v.GetInt("SHORTS_MAX_SECONDS"),
		RetentionDays:        v.GetInt("RETENTION_DAYS"),
		ChannelTimeout:       time.Duration(v.GetInt("CHANNEL_TIMEOUT_SECONDS")) * time.Second,
	}

	if cfg.YouTubeAPIKey == "" {
		return cfg, fmt.Errorf("YOUTUBE_API_KEY is not set")
	}
	if cfg.SanityProjectID == "" {
		return cfg, fmt.Errorf("SANITY_PROJECT_ID is not set")
	}

	return cfg, nil
}

// RetentionWindow returns the record retention as a duration.
func (c WatcherConfig) RetentionWindow() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// GenerateRunID generates a unique identifier based on the current timestamp.
// The identifier is formatted as a string in the "YYYYMMDDHHMMSS" format.
func GenerateRunID() string {
	currentTime := time.Now()

	runID := currentTime.Format("20060102150405")

	return runID
}
