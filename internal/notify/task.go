// Package notify scans the source channel for content posted since the last pass
// and fans it out by direct message to every member of the notification role.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"mediarelay/internal/chat"
	"mediarelay/internal/classifier"
	"mediarelay/internal/delivery"
	"mediarelay/internal/domain"
	"mediarelay/internal/metrics"
	"mediarelay/internal/storage"
)

// Outcome is how a scan pass ended.
type Outcome string

const (
	// OutcomeSkippedBusy means another pass was still running; nothing was read or written.
	OutcomeSkippedBusy Outcome = "skipped_busy"
	// OutcomeStateError means the cursor could not be loaded; nothing was fetched.
	OutcomeStateError Outcome = "state_error"
	// OutcomeFetchFailed means channel history could not be read; the cursor is unchanged.
	OutcomeFetchFailed  Outcome = "fetch_failed"
	OutcomeNoNewContent Outcome = "no_new_content"
	// OutcomeRoleUnresolved means content was found but the role could not be
	// resolved. The cursor still advances, so that content is never delivered.
	OutcomeRoleUnresolved Outcome = "role_unresolved"
	OutcomeDelivered      Outcome = "delivered"
)

// Result describes a finished pass.
type Result struct {
	Outcome Outcome
	PassID  string

	CursorBefore uint64
	CursorAfter  uint64

	// Messages is the number of fetched messages, bot posts included.
	Messages int
	Content  domain.Classified
	Files    int

	// SkippedAttachments counts attachments left out of forwarding for size or
	// download failures.
	SkippedAttachments int

	Members       int
	Delivered     int
	FailedMembers []snowflake.ID

	Err error
}

// Config holds the scan task's settings.
type Config struct {
	GuildID         snowflake.ID
	SourceChannelID snowflake.ID
	RoleID          snowflake.ID

	// ForwardAttachments re-uploads attachments as files instead of sending their URLs.
	ForwardAttachments bool
	// AttachmentSizeLimit is the largest attachment forwarded, in bytes.
	AttachmentSizeLimit int
}

// Task runs scan passes. At most one pass runs at a time.
type Task struct {
	cfg      Config
	platform chat.Platform
	store    storage.CursorStore
	sender   *delivery.Sender
	guard    *semaphore.Weighted
	log      logrus.FieldLogger
}

// New creates a Task.
func New(cfg Config, platform chat.Platform, store storage.CursorStore, logger logrus.FieldLogger) *Task {
	log := logger.WithField("component", "notify")
	return &Task{
		cfg:      cfg,
		platform: platform,
		store:    store,
		sender:   delivery.NewSender(platform, log),
		guard:    semaphore.NewWeighted(1),
		log:      log,
	}
}

// Run executes a pass immediately and then once per interval until ctx is done.
func (t *Task) Run(ctx context.Context, interval time.Duration) {
	t.log.WithField("interval", interval.String()).Info("Scan loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		t.RunOnce(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			t.log.Info("Scan loop stopped")
			return
		}
	}
}

// RunOnce performs one scan pass.
func (t *Task) RunOnce(ctx context.Context) Result {
	if !t.guard.TryAcquire(1) {
		t.log.Warn("Previous scan pass still running, skipping")
		metrics.ScanPasses.WithLabelValues(string(OutcomeSkippedBusy)).Inc()
		return Result{Outcome: OutcomeSkippedBusy}
	}
	defer t.guard.Release(1)

	res := Result{PassID: uuid.NewString()}
	log := t.log.WithField("pass_id", res.PassID)
	start := time.Now()

	t.scan(ctx, log, &res)

	metrics.ScanPasses.WithLabelValues(string(res.Outcome)).Inc()
	log.WithFields(logrus.Fields{
		"outcome":       res.Outcome,
		"cursor_before": res.CursorBefore,
		"cursor_after":  res.CursorAfter,
		"messages":      res.Messages,
		"links":         res.Content.Len(),
		"files":         res.Files,
		"members":       res.Members,
		"delivered":     res.Delivered,
		"duration":      time.Since(start).String(),
	}).Info("Scan pass finished")
	return res
}

func (t *Task) scan(ctx context.Context, log logrus.FieldLogger, res *Result) {
	state, err := t.store.Load(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load scan cursor")
		res.Outcome, res.Err = OutcomeStateError, err
		return
	}
	res.CursorBefore = state.Cursor()
	res.CursorAfter = res.CursorBefore

	messages, err := t.platform.History(ctx, t.cfg.SourceChannelID, snowflake.ID(res.CursorBefore))
	if err != nil {
		log.WithError(err).Error("Failed to fetch channel history")
		res.Outcome, res.Err = OutcomeFetchFailed, err
		return
	}
	res.Messages = len(messages)

	var pending []domain.Attachment
	for _, msg := range messages {
		if id := uint64(msg.ID); id > res.CursorAfter {
			res.CursorAfter = id
		}
		if msg.Author.Bot {
			continue
		}

		if !t.cfg.ForwardAttachments {
			res.Content.Append(classifier.Partition(classifier.Gather(msg)))
			continue
		}

		textOnly := msg
		textOnly.Attachments = nil
		res.Content.Append(classifier.Partition(classifier.Gather(textOnly)))
		for _, a := range msg.Attachments {
			if a.Size > t.cfg.AttachmentSizeLimit {
				log.WithFields(logrus.Fields{
					"message_id": msg.ID,
					"filename":   a.Filename,
					"size":       a.Size,
					"limit":      t.cfg.AttachmentSizeLimit,
				}).Warn("Attachment exceeds size limit, not forwarding")
				res.SkippedAttachments++
				metrics.AttachmentsSkipped.Inc()
				continue
			}
			pending = append(pending, a)
		}
	}

	if res.Content.Empty() && len(pending) == 0 {
		res.Outcome = OutcomeNoNewContent
		t.persist(ctx, log, res)
		return
	}

	members, err := t.platform.RoleMembers(ctx, t.cfg.GuildID, t.cfg.RoleID)
	if err != nil {
		log.WithError(err).WithField("role_id", t.cfg.RoleID).
			Error("Could not resolve notification role, content from this pass will not be delivered")
		res.Outcome, res.Err = OutcomeRoleUnresolved, err
		t.persist(ctx, log, res)
		return
	}

	var files []domain.File
	if len(pending) > 0 {
		files = t.download(ctx, log, pending, res)
	}
	res.Files = len(files)
	if len(files) == 0 && res.Content.Empty() {
		log.Info("Every pending attachment failed to download, nothing to deliver")
		res.Outcome = OutcomeNoNewContent
		t.persist(ctx, log, res)
		return
	}

	for _, m := range members {
		if m.Bot {
			continue
		}
		res.Members++
		if err := t.deliver(ctx, m.UserID, files, res.Content); err != nil {
			log.WithError(err).WithField("user_id", m.UserID).Warn("Failed to notify member")
			res.FailedMembers = append(res.FailedMembers, m.UserID)
			metrics.DirectMessages.WithLabelValues("error").Inc()
			continue
		}
		res.Delivered++
		metrics.DirectMessages.WithLabelValues("success").Inc()
	}

	res.Outcome = OutcomeDelivered
	t.persist(ctx, log, res)
}

// deliver sends the pass content to one member: files, image batches, videos, weird links.
func (t *Task) deliver(ctx context.Context, userID snowflake.ID, files []domain.File, content domain.Classified) error {
	channelID, err := t.platform.OpenDM(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to open direct channel: %w", err)
	}

	var report delivery.Report
	report.Merge(t.sender.SendFiles(ctx, channelID, files))
	report.Merge(t.sender.SendClassified(ctx, channelID, content))
	if !report.OK() {
		return fmt.Errorf("%d of %d messages failed: %w",
			report.Failed, report.Failed+report.Sent, errors.Join(report.Errors...))
	}
	return nil
}

// download fetches pending attachments once for the whole pass. Failures skip
// only the affected file.
func (t *Task) download(ctx context.Context, log logrus.FieldLogger, pending []domain.Attachment, res *Result) []domain.File {
	files := make([]domain.File, 0, len(pending))
	for _, a := range pending {
		data, err := t.platform.Download(ctx, a)
		if err != nil {
			log.WithError(err).WithField("filename", a.Filename).Warn("Failed to download attachment, skipping it")
			res.SkippedAttachments++
			metrics.AttachmentsSkipped.Inc()
			continue
		}
		files = append(files, domain.File{Name: a.Filename, Data: data})
	}
	return files
}

// persist stores the cursor reached by the pass. It never moves backwards.
func (t *Task) persist(ctx context.Context, log logrus.FieldLogger, res *Result) {
	cursor := res.CursorAfter
	if err := t.store.Save(ctx, domain.State{LastCheckedMessageID: &cursor}); err != nil {
		log.WithError(err).Error("Failed to persist scan cursor")
		res.Err = errors.Join(res.Err, err)
		return
	}
	metrics.ScanCursor.Set(float64(cursor))
}
