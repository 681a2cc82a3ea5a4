// Package relocate moves a flagged message's media from the source channel to
// the destination channel when a non-bot user replies to it mentioning the bot.
package relocate

import (
	"context"
	"errors"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sirupsen/logrus"

	"mediarelay/internal/chat"
	"mediarelay/internal/classifier"
	"mediarelay/internal/delivery"
	"mediarelay/internal/domain"
	"mediarelay/internal/metrics"
)

// Outcome is how a relocation run ended.
type Outcome string

const (
	OutcomeIgnored       Outcome = "ignored"
	OutcomeSourceMissing Outcome = "source_missing"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeNoContent     Outcome = "no_content"
	OutcomeDeleteFailed  Outcome = "delete_failed"
	OutcomeRelocated     Outcome = "relocated"
	// OutcomeRelocatedPartial means the original was deleted but at least one
	// post to the destination failed; that content is lost.
	OutcomeRelocatedPartial Outcome = "relocated_partial"
)

// Result describes a finished run.
type Result struct {
	Outcome    Outcome
	OriginalID snowflake.ID
	Content    domain.Classified
	Delivery   delivery.Report
	Err        error
}

// Config holds the channels the workflow moves content between.
type Config struct {
	SourceChannelID      snowflake.ID
	DestinationChannelID snowflake.ID
}

// Workflow runs relocations.
type Workflow struct {
	cfg      Config
	platform chat.Platform
	sender   *delivery.Sender
	log      logrus.FieldLogger
}

// New creates a Workflow.
func New(cfg Config, platform chat.Platform, logger logrus.FieldLogger) *Workflow {
	log := logger.WithField("component", "relocate")
	return &Workflow{
		cfg:      cfg,
		platform: platform,
		sender:   delivery.NewSender(platform, log),
		log:      log,
	}
}

// Triggered reports whether msg asks for a relocation: a non-bot reply in the
// source channel that mentions the bot.
func (w *Workflow) Triggered(msg domain.Message) bool {
	return !msg.Author.Bot &&
		msg.ChannelID == w.cfg.SourceChannelID &&
		msg.ReplyTo != nil &&
		msg.Mentioned(w.platform.SelfID())
}

// Handle runs the workflow for one inbound message.
func (w *Workflow) Handle(ctx context.Context, msg domain.Message) Result {
	res := w.handle(ctx, msg)
	metrics.Relocations.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (w *Workflow) handle(ctx context.Context, msg domain.Message) Result {
	if !w.Triggered(msg) {
		return Result{Outcome: OutcomeIgnored}
	}

	originalID := *msg.ReplyTo
	log := w.log.WithFields(logrus.Fields{
		"trigger_id":  msg.ID,
		"original_id": originalID,
		"user_id":     msg.Author.ID,
	})

	original, err := w.platform.FetchMessage(ctx, w.cfg.SourceChannelID, originalID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info("Referenced message no longer exists")
		return Result{Outcome: OutcomeSourceMissing, OriginalID: originalID, Err: err}
	}
	if err != nil {
		log.WithError(err).Warn("Failed to fetch referenced message")
		return Result{Outcome: OutcomeFetchFailed, OriginalID: originalID, Err: err}
	}

	content := classifier.Partition(classifier.Gather(original))
	if content.Empty() {
		log.Debug("Referenced message has no links or attachments")
		return Result{Outcome: OutcomeNoContent, OriginalID: originalID}
	}

	if err := w.platform.DeleteMessage(ctx, w.cfg.SourceChannelID, originalID); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			log.WithError(err).Error("Bot does not have permission to delete messages")
		} else {
			log.WithError(err).Error("Failed to delete original message")
		}
		return Result{Outcome: OutcomeDeleteFailed, OriginalID: originalID, Content: content, Err: err}
	}

	dest := w.cfg.DestinationChannelID
	var report delivery.Report
	if text := strings.TrimSpace(original.Content); text != "" {
		report.Merge(w.sender.SendText(ctx, dest, text))
	}
	report.Merge(w.sender.SendClassified(ctx, dest, content))

	log = log.WithFields(logrus.Fields{
		"images": len(content.Images),
		"videos": len(content.Videos),
		"weird":  len(content.Weird),
		"sent":   report.Sent,
		"failed": report.Failed,
	})
	if !report.OK() {
		log.Error("Original deleted but some content could not be posted to the destination")
		return Result{
			Outcome:    OutcomeRelocatedPartial,
			OriginalID: originalID,
			Content:    content,
			Delivery:   report,
			Err:        errors.Join(report.Errors...),
		}
	}

	log.Info("Message relocated")
	return Result{Outcome: OutcomeRelocated, OriginalID: originalID, Content: content, Delivery: report}
}
