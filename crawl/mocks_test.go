package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mizumono/yt-upload-notifier/client"
	"github.com/mizumono/yt-upload-notifier/model"
)

// fakeAPI implements VideoAPI with per-method function hooks so each test
// customises only the calls it cares about. Unset hooks fail loudly.
type fakeAPI struct {
	channelIDByUsernameFunc func(ctx context.Context, username string) (string, error)
	searchChannelIDFunc     func(ctx context.Context, query string) (string, error)
	uploadsPlaylistIDFunc   func(ctx context.Context, channelID string) (string, error)
	playlistPageFunc        func(ctx context.Context, playlistID, pageToken string) (*client.PlaylistPage, error)
	videoDetailsFunc        func(ctx context.Context, videoIDs []string) ([]client.VideoDetail, error)

	mu                sync.Mutex
	usernameCalls     int
	searchCalls       int
	playlistIDCalls   int
	playlistPageCalls int
	detailsCalls      int
}

func (f *fakeAPI) ChannelIDByUsername(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	f.usernameCalls++
	f.mu.Unlock()
	if f.channelIDByUsernameFunc != nil {
		return f.channelIDByUsernameFunc(ctx, username)
	}
	return "", errors.New("channelIDByUsernameFunc not implemented")
}

func (f *fakeAPI) SearchChannelID(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchChannelIDFunc != nil {
		return f.searchChannelIDFunc(ctx, query)
	}
	return "", errors.New("searchChannelIDFunc not implemented")
}

func (f *fakeAPI) UploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	f.mu.Lock()
	f.playlistIDCalls++
	f.mu.Unlock()
	if f.uploadsPlaylistIDFunc != nil {
		return f.uploadsPlaylistIDFunc(ctx, channelID)
	}
	return "", errors.New("uploadsPlaylistIDFunc not implemented")
}

func (f *fakeAPI) PlaylistPage(ctx context.Context, playlistID, pageToken string) (*client.PlaylistPage, error) {
	f.mu.Lock()
	f.playlistPageCalls++
	f.mu.Unlock()
	if f.playlistPageFunc != nil {
		return f.playlistPageFunc(ctx, playlistID, pageToken)
	}
	return nil, errors.New("playlistPageFunc not implemented")
}

func (f *fakeAPI) VideoDetails(ctx context.Context, videoIDs []string) ([]client.VideoDetail, error) {
	f.mu.Lock()
	f.detailsCalls++
	f.mu.Unlock()
	if f.videoDetailsFunc != nil {
		return f.videoDetailsFunc(ctx, videoIDs)
	}
	return nil, errors.New("videoDetailsFunc not implemented")
}

// fakeSource implements ChannelSource.
type fakeSource struct {
	channels []model.Channel
	listErr  error

	setCalls []string // "docID=channelID"
	setErr   error
}

func (f *fakeSource) List(ctx context.Context) ([]model.Channel, error) {
	return f.channels, f.listErr
}

func (f *fakeSource) SetChannelID(ctx context.Context, docID, channelID string) error {
	f.setCalls = append(f.setCalls, docID+"="+channelID)
	return f.setErr
}

// fakeStore implements state.VideoStore in memory.
type fakeStore struct {
	watermarks   map[string]string
	watermarkErr error

	recorded  map[string][]model.Upload
	recordErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		watermarks: make(map[string]string),
		recorded:   make(map[string][]model.Upload),
	}
}

func (f *fakeStore) LatestPublishedAt(ctx context.Context, channelID string) (string, error) {
	if f.watermarkErr != nil {
		return "", f.watermarkErr
	}
	return f.watermarks[channelID], nil
}

func (f *fakeStore) RecordUploads(ctx context.Context, channelID, channelName string, uploads []model.Upload) (int, error) {
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.recorded[channelID] = append(f.recorded[channelID], uploads...)
	// Persisting advances the watermark the way the real store's index does.
	for _, upload := range uploads {
		if upload.PublishedAt > f.watermarks[channelID] {
			f.watermarks[channelID] = upload.PublishedAt
		}
	}
	return len(uploads), nil
}

func (f *fakeStore) PurgeAll(ctx context.Context) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]model.VideoRecord, error) {
	return nil, nil
}

func (f *fakeStore) DescribeSchema(ctx context.Context) (string, error) {
	return "", nil
}

// fakeNotifier implements Notifier and records what was sent.
type fakeNotifier struct {
	started    int
	noChannels int
	failed     []error
	summaries  []*model.RunSummary
}

func (f *fakeNotifier) RunStarted(ctx context.Context, startedAt time.Time) error {
	f.started++
	return nil
}

func (f *fakeNotifier) NoChannels(ctx context.Context) error {
	f.noChannels++
	return nil
}

func (f *fakeNotifier) RunSummary(ctx context.Context, summary *model.RunSummary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeNotifier) RunFailed(ctx context.Context, runErr error) error {
	f.failed = append(f.failed, runErr)
	return nil
}
