// Package delivery implements the posting policy shared by relocation and
// notification: text first, images batched into embed blocks, then one message
// per remaining link.
package delivery

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sirupsen/logrus"

	"mediarelay/internal/chat"
	"mediarelay/internal/domain"
	"mediarelay/internal/metrics"
)

// MaxPerMessage is the most embeds or files the platform accepts in one message.
const MaxPerMessage = 10

// Batches splits items into consecutive chunks of at most size elements.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

// Report counts the outcome of a sequence of sends.
type Report struct {
	Sent   int
	Failed int
	Errors []error
}

// OK reports whether nothing failed.
func (r Report) OK() bool { return r.Failed == 0 }

func (r *Report) add(err error) {
	if err != nil {
		r.Failed++
		r.Errors = append(r.Errors, err)
		return
	}
	r.Sent++
}

// Merge adds other's counts to r.
func (r *Report) Merge(other Report) {
	r.Sent += other.Sent
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// Sender posts content to a channel. Every send is independent: a failure is
// logged and the next one is still attempted.
type Sender struct {
	platform chat.Platform
	log      logrus.FieldLogger
}

// NewSender creates a Sender.
func NewSender(platform chat.Platform, logger logrus.FieldLogger) *Sender {
	return &Sender{platform: platform, log: logger}
}

// SendText posts text with link previews suppressed.
func (s *Sender) SendText(ctx context.Context, channelID snowflake.ID, text string) Report {
	var r Report
	r.add(s.send(ctx, channelID, "text", domain.Outbound{Text: text, SuppressEmbeds: true}))
	return r
}

// SendImages posts image links as embed blocks of at most MaxPerMessage.
func (s *Sender) SendImages(ctx context.Context, channelID snowflake.ID, urls []string) Report {
	var r Report
	for _, batch := range Batches(urls, MaxPerMessage) {
		r.add(s.send(ctx, channelID, "images", domain.Outbound{ImageURLs: batch}))
	}
	return r
}

// SendEach posts every link as its own plain message so the platform renders its
// own preview.
func (s *Sender) SendEach(ctx context.Context, channelID snowflake.ID, kind string, urls []string) Report {
	var r Report
	for _, u := range urls {
		r.add(s.send(ctx, channelID, kind, domain.Outbound{Text: u}))
	}
	return r
}

// SendFiles uploads files in batches of at most MaxPerMessage.
func (s *Sender) SendFiles(ctx context.Context, channelID snowflake.ID, files []domain.File) Report {
	var r Report
	for _, batch := range Batches(files, MaxPerMessage) {
		r.add(s.send(ctx, channelID, "files", domain.Outbound{Files: batch}))
	}
	return r
}

// SendClassified posts images, then videos, then weird links.
func (s *Sender) SendClassified(ctx context.Context, channelID snowflake.ID, c domain.Classified) Report {
	var r Report
	r.Merge(s.SendImages(ctx, channelID, c.Images))
	r.Merge(s.SendEach(ctx, channelID, "video", c.Videos))
	r.Merge(s.SendEach(ctx, channelID, "weird", c.Weird))
	return r
}

func (s *Sender) send(ctx context.Context, channelID snowflake.ID, kind string, msg domain.Outbound) error {
	err := s.platform.Send(ctx, channelID, msg)
	metrics.ObserveSend(kind, err)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"channel_id": channelID,
			"kind":       kind,
		}).Warn("Failed to post message")
	}
	return err
}
