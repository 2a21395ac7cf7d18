package crawl

import (
	"context"
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/mizumono/yt-upload-notifier/model"
)

// resolveHandler turns the captured URL fragment into a channel id, charging
// its quota cost to the run. An empty id with a nil error means the lookup
// came back empty.
type resolveHandler func(ctx context.Context, api VideoAPI, summary *model.RunSummary, capture string) (string, error)

// resolveStrategy pairs a URL shape with its resolution handler. Strategies
// are evaluated in priority order with early exit on the first pattern match,
// so the free direct-id shape always wins over the paid lookups.
type resolveStrategy struct {
	name    string
	pattern *regexp.Regexp
	handler resolveHandler
}

var resolveStrategies = []resolveStrategy{
	{
		name:    "channel-id",
		pattern: regexp.MustCompile(`/channel/([a-zA-Z0-9_-]+)`),
		handler: func(_ context.Context, _ VideoAPI, _ *model.RunSummary, id string) (string, error) {
			// The id is embedded in the URL; no API call, no quota.
			return id, nil
		},
	},
	{
		name:    "username",
		pattern: regexp.MustCompile(`/user/([a-zA-Z0-9_-]+)`),
		handler: func(ctx context.Context, api VideoAPI, summary *model.RunSummary, username string) (string, error) {
			summary.AddQuota(costChannelLookup)
			return api.ChannelIDByUsername(ctx, username)
		},
	},
	{
		name:    "handle",
		pattern: regexp.MustCompile(`/@([a-zA-Z0-9_.-]+)`),
		handler: func(ctx context.Context, api VideoAPI, summary *model.RunSummary, handle string) (string, error) {
			summary.AddQuota(costChannelSearch)
			return api.SearchChannelID(ctx, "@"+handle)
		},
	},
	{
		name:    "custom-url",
		pattern: regexp.MustCompile(`/c/([a-zA-Z0-9_-]+)`),
		handler: func(ctx context.Context, api VideoAPI, summary *model.RunSummary, customName string) (string, error) {
			summary.AddQuota(costChannelSearch)
			return api.SearchChannelID(ctx, customName)
		},
	},
}

// ResolveChannelID maps a channel profile URL to a stable channel id using
// the first strategy whose pattern matches. It returns an empty string when
// no shape matches or the matched lookup finds nothing; the caller skips the
// channel for this run.
func ResolveChannelID(ctx context.Context, api VideoAPI, summary *model.RunSummary, profileURL string) string {
	if profileURL == "" {
		return ""
	}

	for _, strategy := range resolveStrategies {
		match := strategy.pattern.FindStringSubmatch(profileURL)
		if match == nil {
			continue
		}

		channelID, err := strategy.handler(ctx, api, summary, match[1])
		if err != nil {
			log.Error().Err(err).
				Str("url", profileURL).
				Str("strategy", strategy.name).
				Msg("Channel resolution failed")
			return ""
		}
		if channelID == "" {
			log.Warn().
				Str("url", profileURL).
				Str("strategy", strategy.name).
				Msg("Channel resolution returned no result")
			return ""
		}

		log.Info().
			Str("url", profileURL).
			Str("strategy", strategy.name).
			Str("channel_id", channelID).
			Msg("Resolved channel id")
		return channelID
	}

	log.Warn().Str("url", profileURL).Msg("No known URL shape matched, cannot resolve channel id")
	return ""
}
