// Package bot is the Telegram command surface. It parses commands and
// message prefixes, drives the pipeline, and renders outcomes into
// user-facing text. All scraping logic lives below it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/communityweave/weavebot/airtable"
	"github.com/communityweave/weavebot/digest"
	"github.com/communityweave/weavebot/models"
	"github.com/communityweave/weavebot/ops"
	"github.com/communityweave/weavebot/pipeline"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Bot wires the Telegram API to the pipeline and the records store.
type Bot struct {
	api      *tgbotapi.BotAPI
	pipeline *pipeline.Pipeline
	store    *airtable.Client
	counters *ops.Counters
}

// New creates a Bot over an authorized Telegram API client.
func New(api *tgbotapi.BotAPI, pl *pipeline.Pipeline, store *airtable.Client, counters *ops.Counters) *Bot {
	return &Bot{api: api, pipeline: pl, store: store, counters: counters}
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.api.GetUpdatesChan(cfg)

	slog.Info("bot listening for messages", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := msg.Text

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, chatID, msg.Command())
	case strings.HasPrefix(strings.ToLower(text), "event:"):
		b.handleEvent(ctx, chatID, text)
	case strings.HasPrefix(strings.ToLower(text), "update:"):
		b.handleUpdate(ctx, chatID, strings.TrimSpace(text[len("update:"):]))
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command string) {
	switch command {
	case "start":
		b.send(chatID, "Hello! Send me `event: <url>` to scrape an event into the community calendar, `update: <text>` to log an update, or /weeklyweave for the digest draft.")
	case "weeklyweave":
		b.send(chatID, "Gathering events and updates for the Weekly Weave...")
		b.SendDigest(ctx, chatID)
	}
}

// handleEvent scrapes the first URL after "event:" and saves the record.
func (b *Bot) handleEvent(ctx context.Context, chatID int64, text string) {
	url := urlPattern.FindString(text)
	if url == "" {
		b.send(chatID, "No URL found after 'event:'.")
		return
	}

	b.send(chatID, fmt.Sprintf("Scraping %s for event information...", url))
	b.counters.Scrape()

	record, outcome, err := b.pipeline.ScrapeEvent(ctx, url)
	if err != nil {
		b.send(chatID, b.failureMessage(outcome, err))
		return
	}

	stored, err := b.store.InsertEvent(ctx, record, url)
	if err != nil {
		slog.Error("event save failed", "url", url, "error", err)
		b.send(chatID, "Scraped the event but failed to save it to Airtable.")
		return
	}

	b.send(chatID, formatSavedEvent(record, b.store.EventRecordURL(stored.ID)))
}

// handleUpdate saves a community update. When the text carries a URL,
// the page is scraped for an article record; otherwise the raw text is
// stored as-is.
func (b *Bot) handleUpdate(ctx context.Context, chatID int64, content string) {
	if content == "" {
		b.send(chatID, "Please provide content for the update after 'update:'.")
		return
	}

	record := &models.UpdateRecord{Content: &content}
	if url := urlPattern.FindString(content); url != "" {
		b.send(chatID, fmt.Sprintf("Scraping %s for the update...", url))
		b.counters.Scrape()
		scraped, outcome, err := b.pipeline.ScrapeUpdate(ctx, url)
		if err != nil {
			b.send(chatID, b.failureMessage(outcome, err))
			return
		}
		scraped.Source = &url
		record = scraped
	} else {
		b.send(chatID, "Saving your update to Airtable...")
	}

	stored, err := b.store.InsertUpdate(ctx, record)
	if err != nil {
		slog.Error("update save failed", "error", err)
		b.send(chatID, "Failed to save the update to Airtable.")
		return
	}

	b.send(chatID, "Update saved to Airtable: "+b.store.UpdateRecordURL(stored.ID))
}

// SendDigest formats and posts the newsletter draft to the chat. Also
// invoked by the cron scheduler.
func (b *Bot) SendDigest(ctx context.Context, chatID int64) {
	events, err := b.store.ListUpcomingEvents(ctx)
	if err != nil {
		slog.Error("digest: listing events failed", "error", err)
		b.send(chatID, "Failed to fetch events from Airtable.")
		return
	}

	// The updates table may lack a Received At field; a digest without
	// updates is still worth sending.
	updates, err := b.store.ListRecentUpdates(ctx)
	if err != nil {
		slog.Warn("digest: listing updates failed, continuing without them", "error", err)
	}

	content := digest.Format(events, updates)
	b.send(chatID, "Here is your Weekly Weave draft:\n\n```markdown\n"+content+"```")
}

// failureMessage maps a pipeline error to its user-facing text. Gated
// pages carry the profile-specific remediation message.
func (b *Bot) failureMessage(outcome *models.PipelineOutcome, err error) string {
	var perr *models.PipelineError
	if errors.As(err, &perr) {
		switch perr.Code {
		case models.ErrCodeGated:
			b.counters.Gated()
			return perr.Message
		case models.ErrCodeExtractionEmpty:
			b.counters.Failed()
			return "Could not find event information on that page."
		case models.ErrCodeRenderFailed:
			b.counters.Failed()
			return "Failed to load the page. It may be slow or down — try again in a minute."
		}
	}
	b.counters.Failed()
	slog.Error("scrape failed", "error", err)
	return "Failed to scrape information from the URL."
}

func formatSavedEvent(record *models.EventRecord, recordURL string) string {
	var b strings.Builder
	b.WriteString("Event information saved to Airtable: " + recordURL)
	b.WriteString("\n\n*Scraped Information:*\n")
	b.WriteString("*Title:* " + orNA(record.Title) + "\n")
	b.WriteString("*Description:* " + orNA(record.Description) + "\n")
	b.WriteString("*Start:* " + orNA(record.Start) + "\n")
	b.WriteString("*End:* " + orNA(record.End) + "\n")
	b.WriteString("*Location:* " + orNA(record.Location))
	return b.String()
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("telegram send failed", "error", err)
	}
}
