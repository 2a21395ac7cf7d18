// Package model defines the domain types shared across the watcher pipeline.
package model

import "time"

// DefaultWatermark is the publish-time cutoff used for channels that have no
// stored record yet. RFC3339 timestamps compare correctly as strings, so the
// epoch start sorts before every real publish time.
const DefaultWatermark = "1970-01-01T00:00:00Z"

// Channel is one entry from the channel-list source. ChannelID is empty until
// the profile URL has been resolved; once resolved it is written back to the
// source so resolution is not repeated on later runs.
type Channel struct {
	DocID      string `json:"_id"`
	Name       string `json:"name"`
	ProfileURL string `json:"youtube"`
	ChannelID  string `json:"channelId"`
}

// Upload is a discovered video candidate. PublishedAt is the raw RFC3339
// string from the API; the dedup gate compares these lexicographically.
type Upload struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}

// VideoRecord is the durable record written for each newly seen upload,
// keyed by (channelId, videoId). ExpiresAt is an epoch-seconds TTL attribute
// reaped by the store itself.
type VideoRecord struct {
	ChannelID   string `dynamodbav:"channelId" json:"channel_id"`
	VideoID     string `dynamodbav:"videoId" json:"video_id"`
	ChannelName string `dynamodbav:"channelName" json:"channel_name"`
	Title       string `dynamodbav:"title" json:"title"`
	PublishedAt string `dynamodbav:"publishedAt" json:"published_at"`
	ExpiresAt   int64  `dynamodbav:"expiresAt" json:"expires_at"`
}

// NewUpload is one entry in the run summary's new-upload list.
type NewUpload struct {
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}

// WatchURL returns the public watch page for the upload.
func (u NewUpload) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + u.VideoID
}

// RunSummary aggregates the counters for a single execution. It is created by
// the runner at start, mutated additively while channels are processed
// sequentially, and consumed once by the notifier.
type RunSummary struct {
	RunID             string
	StartedAt         time.Time
	Elapsed           time.Duration
	ChannelsTotal     int
	ChannelsProcessed int
	QuotaUsed         int
	NewUploadCount    int
	NewUploads        []NewUpload
}

// NewRunSummary returns a summary with the clock started.
func NewRunSummary(runID string) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		StartedAt: time.Now(),
	}
}

// AddQuota charges n API quota units to the run.
func (s *RunSummary) AddQuota(n int) {
	s.QuotaUsed += n
}

// AddNewUploads registers uploads persisted this run. Entries are only listed
// in the notification when notify is true; a channel's first-ever run persists
// its backlog silently so the sink is not flooded with history.
func (s *RunSummary) AddNewUploads(uploads []NewUpload, notify bool) {
	s.NewUploadCount += len(uploads)
	if notify {
		s.NewUploads = append(s.NewUploads, uploads...)
	}
}
