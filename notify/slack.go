// Package notify emits run notifications to a Slack incoming webhook using
// Block Kit payloads with a plain-text fallback.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"

	"github.com/mizumono/yt-upload-notifier/model"
)

// jst renders timestamps in the timezone the channel owners live in.
var jst = time.FixedZone("JST", 9*60*60)

// SlackNotifier posts run lifecycle messages to a webhook. A notifier with an
// empty webhook URL logs and drops every message, which keeps notification
// failures out of the pipeline's error budget.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier creates a notifier for the given webhook URL. An empty URL
// is allowed and produces a no-op notifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RunStarted announces the beginning of a run.
func (n *SlackNotifier) RunStarted(ctx context.Context, startedAt time.Time) error {
	text := fmt.Sprintf(":rocket: YouTube upload check started.\n(run time: %s)",
		startedAt.In(jst).Format("2006-01-02 15:04:05 MST"))

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false),
			nil, nil,
		),
	}

	return n.post(ctx, blocks, "YouTube upload check started")
}

// NoChannels reports a run that ended early because the channel list was
// empty or unavailable.
func (n *SlackNotifier) NoChannels(ctx context.Context) error {
	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				":information_source: Run finished: no channels to process.", false, false),
			nil, nil,
		),
	}

	return n.post(ctx, blocks, "Run finished: no channels to process")
}

// RunSummary posts the end-of-run summary: counters, then one section and an
// actionable button per new upload, newest first.
func (n *SlackNotifier) RunSummary(ctx context.Context, summary *model.RunSummary) error {
	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, ":white_check_mark: YouTube upload check finished", true, false),
		),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Elapsed:* %.1f s", summary.Elapsed.Seconds()), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Channels:* %d / %d", summary.ChannelsProcessed, summary.ChannelsTotal), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*Quota used:* %d units", summary.QuotaUsed), false, false),
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("*New uploads:* %d", summary.NewUploadCount), false, false),
		}, nil),
		slack.NewDividerBlock(),
	}

	if len(summary.NewUploads) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "*New uploads*", false, false),
			nil, nil,
		))
		for _, upload := range summary.NewUploads {
			blocks = append(blocks, uploadBlocks(upload)...)
		}
	} else {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "No new uploads this run.", false, false),
			nil, nil,
		))
	}

	fallback := fmt.Sprintf("YouTube upload check finished (%d new uploads)", summary.NewUploadCount)
	return n.post(ctx, blocks, fallback)
}

// RunFailed reports a run-level fatal error.
func (n *SlackNotifier) RunFailed(ctx context.Context, runErr error) error {
	message := "unknown error"
	if runErr != nil {
		message = runErr.Error()
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(
			slack.NewTextBlockObject(slack.PlainTextType, ":x: YouTube upload check failed", true, false),
		),
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("The run aborted with an error.\n*Error:*\n```%s```", message), false, false),
			nil, nil,
		),
	}

	return n.post(ctx, blocks, "YouTube upload check failed")
}

// uploadBlocks renders one new upload as a section, a task button and a
// divider, mirroring the summary layout downstream tooling expects.
func uploadBlocks(upload model.NewUpload) []slack.Block {
	publishedAt := upload.PublishedAt
	if t, err := time.Parse(time.RFC3339, upload.PublishedAt); err == nil {
		publishedAt = t.In(jst).Format("2006-01-02 15:04:05 MST")
	}

	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("*%s*\n<%s|%s>\n*Published:* %s",
				upload.ChannelName, upload.WatchURL(), escapeTitle(upload.Title), publishedAt),
			false, false),
		nil, nil,
	)

	value, err := json.Marshal(map[string]string{
		"videoId":     upload.VideoID,
		"title":       upload.Title,
		"channelName": upload.ChannelName,
		"publishedAt": upload.PublishedAt,
		"videoUrl":    upload.WatchURL(),
	})
	if err != nil {
		// Marshalling a map of strings cannot fail; keep the button anyway.
		value = []byte("{}")
	}

	button := slack.NewButtonBlockElement(
		"add_youtube_task",
		string(value),
		slack.NewTextBlockObject(slack.PlainTextType, "Add task", true, false),
	)
	button.Style = slack.StylePrimary

	return []slack.Block{
		section,
		slack.NewActionBlock("", button),
		slack.NewDividerBlock(),
	}
}

// escapeTitle escapes the characters Slack treats specially inside mrkdwn
// link labels.
func escapeTitle(title string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(title)
}

func (n *SlackNotifier) post(ctx context.Context, blocks []slack.Block, fallback string) error {
	if n.webhookURL == "" {
		log.Info().Str("fallback", fallback).Msg("Slack webhook URL not configured, skipping notification")
		return nil
	}

	msg := &slack.WebhookMessage{
		Text:   fallback,
		Blocks: &slack.Blocks{BlockSet: blocks},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post Slack notification: %w", err)
	}

	log.Info().Str("fallback", fallback).Msg("Posted Slack notification")
	return nil
}
