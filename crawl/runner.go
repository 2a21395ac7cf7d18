// Package crawl drives a single watcher run: resolve each channel, discover
// its newest uploads, gate them against the stored watermark, persist the
// survivors and hand the aggregate to the notifier.
package crawl

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mizumono/yt-upload-notifier/common"
	"github.com/mizumono/yt-upload-notifier/model"
	"github.com/mizumono/yt-upload-notifier/state"
)

// Deps bundles the external collaborators for a run.
type Deps struct {
	API      VideoAPI
	Source   ChannelSource
	Store    state.VideoStore
	Notifier Notifier
}

// Run executes one full pass over all channels, sequentially. Per-channel
// failures are isolated and logged; only a run-level failure (a panic
// escaping the channel loop) is returned, and the caller is expected to
// report it and exit non-zero. The returned summary is always usable.
func Run(ctx context.Context, deps Deps, cfg common.WatcherConfig) (summary *model.RunSummary, err error) {
	runID := common.GenerateRunID() + "-" + uuid.NewString()[:8]
	summary = model.NewRunSummary(runID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", runID).Msgf("Run panicked: %v", r)
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	log.Info().Str("run_id", runID).Msg("Starting upload check run")
	if nerr := deps.Notifier.RunStarted(ctx, summary.StartedAt); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to send run-started notification")
	}

	channels, cerr := deps.Source.List(ctx)
	if cerr != nil {
		log.Error().Err(cerr).Msg("Failed to retrieve channel list")
		channels = nil
	}
	if len(channels) == 0 {
		log.Info().Msg("No channels to process, finishing run")
		if nerr := deps.Notifier.NoChannels(ctx); nerr != nil {
			log.Warn().Err(nerr).Msg("Failed to send zero-channels notification")
		}
		summary.Elapsed = time.Since(summary.StartedAt)
		return summary, nil
	}

	summary.ChannelsTotal = len(channels)
	for _, channel := range channels {
		summary.ChannelsProcessed++
		processChannel(ctx, deps, cfg, summary, channel)
	}

	summary.Elapsed = time.Since(summary.StartedAt)
	sort.Slice(summary.NewUploads, func(i, j int) bool {
		return summary.NewUploads[i].PublishedAt > summary.NewUploads[j].PublishedAt
	})

	log.Info().
		Str("run_id", runID).
		Dur("elapsed", summary.Elapsed).
		Int("channels_processed", summary.ChannelsProcessed).
		Int("channels_total", summary.ChannelsTotal).
		Int("quota_used", summary.QuotaUsed).
		Int("new_uploads", summary.NewUploadCount).
		Msg("Run finished")

	if nerr := deps.Notifier.RunSummary(ctx, summary); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to send run summary notification")
	}

	return summary, nil
}

// processChannel runs the resolve → discover → gate → record pipeline for one
// channel inside an isolated failure boundary. Nothing it does can abort the
// run: errors and panics are logged with channel context and the loop moves
// on.
func processChannel(ctx context.Context, deps Deps, cfg common.WatcherConfig, summary *model.RunSummary, channel model.Channel) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("channel_name", channel.Name).
				Str("channel_id", channel.ChannelID).
				Msgf("Channel processing panicked: %v", r)
		}
	}()

	chCtx, cancel := context.WithTimeout(ctx, cfg.ChannelTimeout)
	defer cancel()

	log.Info().Str("channel_name", channel.Name).Msg("Processing channel")

	channelID := channel.ChannelID
	if channelID == "" && channel.ProfileURL != "" {
		channelID = ResolveChannelID(chCtx, deps.API, summary, channel.ProfileURL)
		if channelID != "" {
			// Fire and forget: a failed write-back only means resolution is
			// repeated next run.
			if serr := deps.Source.SetChannelID(chCtx, channel.DocID, channelID); serr != nil {
				log.Warn().Err(serr).
					Str("channel_name", channel.Name).
					Msg("Failed to persist resolved channel id")
			}
		}
	}
	if channelID == "" {
		log.Warn().Str("channel_name", channel.Name).Msg("No channel id available, skipping channel")
		return
	}

	watermark, werr := deps.Store.LatestPublishedAt(chCtx, channelID)
	if werr != nil {
		log.Warn().Err(werr).
			Str("channel_id", channelID).
			Msg("Watermark read failed, treating channel as never seen")
		watermark = ""
	}
	firstRun := watermark == "" || watermark == model.DefaultWatermark
	if watermark == "" {
		watermark = model.DefaultWatermark
	}

	uploads := discoverUploads(chCtx, deps.API, summary, channelID, discoverConfig{
		maxPages:         cfg.MaxPlaylistPages,
		maxItems:         cfg.MaxDiscoveredItems,
		maxResults:       cfg.MaxResultsPerChannel,
		shortsMaxSeconds: cfg.ShortsMaxSeconds,
	})

	newUploads := filterNew(uploads, watermark)
	log.Info().
		Str("channel_name", channel.Name).
		Str("channel_id", channelID).
		Int("new_count", len(newUploads)).
		Msg("Gated uploads against watermark")
	if len(newUploads) == 0 {
		return
	}

	if _, rerr := deps.Store.RecordUploads(chCtx, channelID, channel.Name, newUploads); rerr != nil {
		log.Error().Err(rerr).
			Str("channel_id", channelID).
			Msg("Failed to record new uploads")
	}

	entries := make([]model.NewUpload, 0, len(newUploads))
	for _, upload := range newUploads {
		entries = append(entries, model.NewUpload{
			ChannelName: channel.Name,
			ChannelID:   channelID,
			VideoID:     upload.VideoID,
			Title:       upload.Title,
			PublishedAt: upload.PublishedAt,
		})
	}

	summary.AddNewUploads(entries, !firstRun)
	if firstRun {
		log.Info().
			Str("channel_name", channel.Name).
			Int("backfilled", len(entries)).
			Msg("First run for channel, persisted backlog without notification entries")
	}
}

// filterNew keeps uploads published strictly after the watermark. RFC3339
// timestamps are compared lexicographically, which is monotonic for the
// format.
func filterNew(uploads []model.Upload, watermark string) []model.Upload {
	var fresh []model.Upload
	for _, upload := range uploads {
		if upload.PublishedAt > watermark {
			fresh = append(fresh, upload)
		}
	}
	return fresh
}
