package crawl

import (
	"context"
	"time"

	"github.com/mizumono/yt-upload-notifier/client"
	"github.com/mizumono/yt-upload-notifier/model"
)

// VideoAPI defines the hosting-API operations the pipeline needs. The
// production implementation is client.YouTubeDataClient; tests substitute
// fakes.
type VideoAPI interface {
	// ChannelIDByUsername resolves a legacy username to a channel id.
	// Returns an empty id when no channel matches.
	ChannelIDByUsername(ctx context.Context, username string) (string, error)

	// SearchChannelID resolves a handle or custom name via channel search.
	// Returns an empty id when the search has no hits.
	SearchChannelID(ctx context.Context, query string) (string, error)

	// UploadsPlaylistID returns the channel's uploads playlist id, or an
	// empty string when the channel exposes none.
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)

	// PlaylistPage fetches one page of up to 50 uploads.
	PlaylistPage(ctx context.Context, playlistID, pageToken string) (*client.PlaylistPage, error)

	// VideoDetails fetches duration and live status for up to 50 ids.
	VideoDetails(ctx context.Context, videoIDs []string) ([]client.VideoDetail, error)
}

// ChannelSource is the external channel-list collaborator.
type ChannelSource interface {
	List(ctx context.Context) ([]model.Channel, error)
	SetChannelID(ctx context.Context, docID, channelID string) error
}

// Notifier receives run lifecycle messages. Implementations must tolerate
// being called with a nil-content run (zero channels).
type Notifier interface {
	RunStarted(ctx context.Context, startedAt time.Time) error
	NoChannels(ctx context.Context) error
	RunSummary(ctx context.Context, summary *model.RunSummary) error
	RunFailed(ctx context.Context, runErr error) error
}

// API quota unit costs per call shape.
const (
	costChannelLookup = 1
	costChannelSearch = 100
	costChannelMeta   = 1
	costPlaylistPage  = 1
	costVideoDetails  = 1
)
