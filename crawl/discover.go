package crawl

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mizumono/yt-upload-notifier/client"
	"github.com/mizumono/yt-upload-notifier/model"
)

// shortsTitleMarker flags short-form content by title, matched
// case-insensitively.
const shortsTitleMarker = "#shorts"

// detailBatchSize is the videos.list id limit per call.
const detailBatchSize = 50

// discoverConfig bounds a single channel's discovery pass.
type discoverConfig struct {
	maxPages         int
	maxItems         int
	maxResults       int
	shortsMaxSeconds int
}

// discoverUploads retrieves the channel's newest uploads: uploads-playlist
// lookup, cursor pagination, detail enrichment, then the live/shorts filters.
// Every failure along the way is logged and truncates the pass; whatever was
// collected up to that point is still used.
func discoverUploads(ctx context.Context, api VideoAPI, summary *model.RunSummary, channelID string, cfg discoverConfig) []model.Upload {
	summary.AddQuota(costChannelMeta)
	playlistID, err := api.UploadsPlaylistID(ctx, channelID)
	if err != nil {
		log.Error().Err(err).Str("channel_id", channelID).Msg("Failed to fetch uploads playlist id")
		return nil
	}
	if playlistID == "" {
		log.Warn().Str("channel_id", channelID).Msg("Channel has no uploads playlist")
		return nil
	}

	items := fetchPlaylistItems(ctx, api, summary, playlistID, cfg)
	if len(items) == 0 {
		return nil
	}

	durations, live := fetchVideoDetails(ctx, api, summary, items)

	var uploads []model.Upload
	for _, item := range items {
		if item.VideoID == "" || item.Title == "" || item.PublishedAt == "" {
			continue
		}
		if live[item.VideoID] {
			continue
		}
		if strings.Contains(strings.ToLower(item.Title), shortsTitleMarker) {
			continue
		}
		if secs := parseDurationSeconds(durations[item.VideoID]); secs > 0 && secs <= cfg.shortsMaxSeconds {
			continue
		}

		uploads = append(uploads, model.Upload{
			VideoID:     item.VideoID,
			Title:       item.Title,
			PublishedAt: item.PublishedAt,
		})
	}

	sort.Slice(uploads, func(i, j int) bool {
		return uploads[i].PublishedAt > uploads[j].PublishedAt
	})
	if len(uploads) > cfg.maxResults {
		uploads = uploads[:cfg.maxResults]
	}

	log.Info().
		Str("channel_id", channelID).
		Int("discovered", len(items)).
		Int("kept", len(uploads)).
		Msg("Discovered channel uploads")

	return uploads
}

// fetchPlaylistItems paginates the uploads playlist until the cursor runs
// out, the page cap is hit, or enough items have accumulated. A page failure
// truncates pagination; earlier pages are kept.
func fetchPlaylistItems(ctx context.Context, api VideoAPI, summary *model.RunSummary, playlistID string, cfg discoverConfig) []client.PlaylistVideo {
	var items []client.PlaylistVideo
	pageToken := ""

	for page := 1; page <= cfg.maxPages && len(items) < cfg.maxItems; page++ {
		summary.AddQuota(costPlaylistPage)
		resp, err := api.PlaylistPage(ctx, playlistID, pageToken)
		if err != nil {
			log.Error().Err(err).
				Str("playlist_id", playlistID).
				Int("page", page).
				Msg("Playlist page fetch failed, using partial results")
			break
		}

		items = append(items, resp.Items...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return items
}

// fetchVideoDetails enriches the deduplicated set of discovered video ids in
// batches. A failed batch leaves its videos without duration or live status,
// which the filters treat as "keep".
func fetchVideoDetails(ctx context.Context, api VideoAPI, summary *model.RunSummary, items []client.PlaylistVideo) (map[string]string, map[string]bool) {
	seen := make(map[string]bool, len(items))
	videoIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.VideoID == "" || seen[item.VideoID] {
			continue
		}
		seen[item.VideoID] = true
		videoIDs = append(videoIDs, item.VideoID)
	}

	durations := make(map[string]string, len(videoIDs))
	live := make(map[string]bool)

	for start := 0; start < len(videoIDs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(videoIDs) {
			end = len(videoIDs)
		}

		summary.AddQuota(costVideoDetails)
		details, err := api.VideoDetails(ctx, videoIDs[start:end])
		if err != nil {
			log.Error().Err(err).
				Int("batch_start", start).
				Msg("Video details batch failed, items proceed without enrichment")
			continue
		}

		for _, detail := range details {
			durations[detail.VideoID] = detail.Duration
			if detail.IsLive {
				live[detail.VideoID] = true
			}
		}
	}

	return durations, live
}
