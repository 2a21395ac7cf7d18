// Package channels provides the channel-list source backed by the Sanity CMS
// HTTP API.
package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mizumono/yt-upload-notifier/model"
)

const apiVersion = "2025-04-29"

// channelQuery selects every tracked channel document with its display name,
// profile URL and (possibly empty) resolved channel id.
const channelQuery = `*[_type == "liver"]{ _id, name, youtube, channelId }`

// SanitySource reads the channel list from a Sanity dataset and writes
// resolved channel ids back to it.
type SanitySource struct {
	projectID  string
	dataset    string
	token      string
	httpClient *http.Client

	// baseURL overrides the Sanity API endpoint in tests.
	baseURL string
}

// NewSanitySource creates a channel-list source for the given project and
// dataset. The token is only required for write-back; reads work without it
// on public datasets.
func NewSanitySource(projectID, dataset, token string) (*SanitySource, error) {
	if projectID == "" {
		return nil, fmt.Errorf("Sanity project id is required")
	}
	if dataset == "" {
		return nil, fmt.Errorf("Sanity dataset is required")
	}

	return &SanitySource{
		projectID: projectID,
		dataset:   dataset,
		token:     token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("https://%s.api.sanity.io", projectID),
	}, nil
}

// List fetches every tracked channel from the dataset.
func (s *SanitySource) List(ctx context.Context) ([]model.Channel, error) {
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?query=%s",
		s.baseURL, apiVersion, s.dataset, url.QueryEscape(channelQuery))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("channel list query returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Result []model.Channel `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode channel list: %w", err)
	}

	log.Info().Int("channel_count", len(payload.Result)).Msg("Fetched channel list from Sanity")
	return payload.Result, nil
}

// SetChannelID patches the resolved channel id onto the given document.
// Callers treat failure as non-fatal; resolution is simply repeated next run.
func (s *SanitySource) SetChannelID(ctx context.Context, docID, channelID string) error {
	if docID == "" || channelID == "" {
		return fmt.Errorf("doc id and channel id are required")
	}
	if s.token == "" {
		log.Warn().Str("doc_id", docID).Msg("Skipping channel id write-back: no Sanity API token configured")
		return nil
	}

	mutation := map[string]any{
		"mutations": []any{
			map[string]any{
				"patch": map[string]any{
					"id":  docID,
					"set": map[string]string{"channelId": channelID},
				},
			},
		},
	}

	body, err := json.Marshal(mutation)
	if err != nil {
		return fmt.Errorf("failed to encode mutation: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v%s/data/mutate/%s", s.baseURL, apiVersion, s.dataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create mutation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to patch channel id: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("channel id patch returned status %d: %s", resp.StatusCode, respBody)
	}

	log.Info().Str("doc_id", docID).Str("channel_id", channelID).Msg("Persisted resolved channel id to Sanity")
	return nil
}
