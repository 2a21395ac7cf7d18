// Package client wraps the YouTube Data API v3 calls used by the watcher.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// PlaylistVideo is one playlist item as returned by a page call.
type PlaylistVideo struct {
	VideoID     string
	Title       string
	PublishedAt string
}

// PlaylistPage is one page of a channel's uploads playlist. NextPageToken is
// empty on the final page.
type PlaylistPage struct {
	Items         []PlaylistVideo
	NextPageToken string
}

// VideoDetail carries the enrichment metadata used by the short-form and
// live-stream filters.
type VideoDetail struct {
	VideoID  string
	Duration string
	IsLive   bool
}

// YouTubeDataClient implements the crawl.VideoAPI interface over the official
// YouTube Data API service.
type YouTubeDataClient struct {
	service *ytapi.Service
	apiKey  string
}

// NewYouTubeDataClient creates a new YouTube data client.
func NewYouTubeDataClient(apiKey string) (*YouTubeDataClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}

	return &YouTubeDataClient{
		apiKey: apiKey,
	}, nil
}

// Connect establishes a connection to the YouTube API.
func (c *YouTubeDataClient) Connect(ctx context.Context) error {
	log.Info().Msg("Connecting to YouTube API")

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	service, err := ytapi.NewService(ctx, option.WithAPIKey(c.apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube service")
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	c.service = service
	log.Info().Msg("Connected to YouTube API successfully")
	return nil
}

// Disconnect closes the connection to the YouTube API.
func (c *YouTubeDataClient) Disconnect(ctx context.Context) error {
	// No explicit disconnect needed for the YouTube API client
	c.service = nil
	return nil
}

// ChannelIDByUsername resolves a legacy /user/ username to a channel id.
// Returns an empty id when no channel carries the username.
func (c *YouTubeDataClient) ChannelIDByUsername(ctx context.Context, username string) (string, error) {
	if c.service == nil {
		return "", fmt.Errorf("YouTube client not connected")
	}

	log.Debug().Str("username", username).Msg("Looking up channel by username")

	response, err := c.service.Channels.List([]string{"id"}).
		ForUsername(username).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("channels.list forUsername=%s: %w", username, err)
	}

	if len(response.Items) == 0 {
		return "", nil
	}

	return response.Items[0].Id, nil
}

// SearchChannelID resolves a handle or custom name through channel search.
// Returns an empty id when the search has no hits.
func (c *YouTubeDataClient) SearchChannelID(ctx context.Context, query string) (string, error) {
	if c.service == nil {
		return "", fmt.Errorf("YouTube client not connected")
	}

	log.Debug().Str("query", query).Msg("Searching for channel")

	response, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("search.list q=%s: %w", query, err)
	}

	if len(response.Items) == 0 || response.Items[0].Snippet == nil {
		return "", nil
	}

	return response.Items[0].Snippet.ChannelId, nil
}

// UploadsPlaylistID returns the id of the channel's uploads playlist, or an
// empty string when the channel exposes none.
func (c *YouTubeDataClient) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	if c.service == nil {
		return "", fmt.Errorf("YouTube client not connected")
	}

	log.Debug().Str("channel_id", channelID).Msg("Fetching uploads playlist id")

	response, err := c.service.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("channels.list id=%s: %w", channelID, err)
	}

	if len(response.Items) == 0 || response.Items[0].ContentDetails == nil ||
		response.Items[0].ContentDetails.RelatedPlaylists == nil {
		return "", nil
	}

	return response.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

// PlaylistPage fetches one page of up to 50 playlist items. Pass an empty
// pageToken for the first page; the returned token is empty on the last one.
func (c *YouTubeDataClient) PlaylistPage(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error) {
	if c.service == nil {
		return nil, fmt.Errorf("YouTube client not connected")
	}

	call := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(50).
		Context(ctx)

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list playlistId=%s: %w", playlistID, err)
	}

	page := &PlaylistPage{
		NextPageToken: response.NextPageToken,
	}

	for _, item := range response.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil {
			continue
		}
		page.Items = append(page.Items, PlaylistVideo{
			VideoID:     item.Snippet.ResourceId.VideoId,
			Title:       item.Snippet.Title,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}

	log.Debug().
		Str("playlist_id", playlistID).
		Int("item_count", len(page.Items)).
		Bool("has_next_page", page.NextPageToken != "").
		Msg("Fetched playlist page")

	return page, nil
}

// VideoDetails fetches live-broadcast status and duration for up to 50 video
// ids in a single call.
func (c *YouTubeDataClient) VideoDetails(ctx context.Context, videoIDs []string) ([]VideoDetail, error) {
	if c.service == nil {
		return nil, fmt.Errorf("YouTube client not connected")
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	response, err := c.service.Videos.List([]string{"liveStreamingDetails", "contentDetails"}).
		Id(videoIDs...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}

	details := make([]VideoDetail, 0, len(response.Items))
	for _, item := range response.Items {
		detail := VideoDetail{
			VideoID: item.Id,
			IsLive:  item.LiveStreamingDetails != nil,
		}
		if item.ContentDetails != nil {
			detail.Duration = item.ContentDetails.Duration
		}
		details = append(details, detail)
	}

	log.Debug().
		Int("requested", len(videoIDs)).
		Int("returned", len(details)).
		Msg("Fetched video details batch")

	return details, nil
}
