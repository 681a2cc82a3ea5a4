package relocate

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediarelay/internal/chat/chattest"
	"mediarelay/internal/domain"
)

const (
	botID       snowflake.ID = 900
	moderatorID snowflake.ID = 42
	sourceID    snowflake.ID = 1179902312739782758
	destID      snowflake.ID = 1179902329126928495
)

func newWorkflow(t *testing.T) (*Workflow, *chattest.Platform) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := chattest.New(botID)
	w := New(Config{SourceChannelID: sourceID, DestinationChannelID: destID}, p, logger)
	return w, p
}

func replyTo(id snowflake.ID) domain.Message {
	ref := id
	return domain.Message{
		ID:        id + 1,
		ChannelID: sourceID,
		Author:    domain.Author{ID: moderatorID},
		Content:   "<@900> move this",
		ReplyTo:   &ref,
		Mentions:  []snowflake.ID{botID},
	}
}

func TestTriggerGuard(t *testing.T) {
	w, p := newWorkflow(t)
	p.Post(domain.Message{ID: 10, ChannelID: sourceID, Content: "https://x.com/a.png"})

	base := replyTo(10)

	bot := base
	bot.Author.Bot = true

	otherChannel := base
	otherChannel.ChannelID = destID

	notReply := base
	notReply.ReplyTo = nil

	noMention := base
	noMention.Mentions = []snowflake.ID{7}

	for name, msg := range map[string]domain.Message{
		"bot author":    bot,
		"other channel": otherChannel,
		"not a reply":   notReply,
		"no mention":    noMention,
	} {
		t.Run(name, func(t *testing.T) {
			res := w.Handle(context.Background(), msg)
			assert.Equal(t, OutcomeIgnored, res.Outcome)
		})
	}
	assert.Empty(t, p.Deleted)
	assert.Empty(t, p.Sent)
	assert.True(t, w.Triggered(base))
}

func TestRelocateScenario(t *testing.T) {
	w, p := newWorkflow(t)
	content := "look https://cdn.discordapp.com/attachments/x.png check this https://example.com/page"
	p.Post(domain.Message{ID: 10, ChannelID: sourceID, Author: domain.Author{ID: 5}, Content: content})

	res := w.Handle(context.Background(), replyTo(10))
	require.Equal(t, OutcomeRelocated, res.Outcome)
	assert.Equal(t, []snowflake.ID{10}, p.Deleted)

	sent := p.SentTo(destID)
	require.Len(t, sent, 3)
	assert.Equal(t, content, sent[0].Text)
	assert.True(t, sent[0].SuppressEmbeds)
	assert.Equal(t, []string{"https://cdn.discordapp.com/attachments/x.png"}, sent[1].ImageURLs)
	assert.Equal(t, "https://example.com/page", sent[2].Text)
	assert.False(t, sent[2].SuppressEmbeds)
	assert.Empty(t, p.SentTo(sourceID))
}

func TestRelocateAttachmentsBeforeTextLinks(t *testing.T) {
	w, p := newWorkflow(t)
	var attachments []domain.Attachment
	for i := 0; i < 12; i++ {
		attachments = append(attachments, domain.Attachment{
			ID:  snowflake.ID(100 + i),
			URL: fmt.Sprintf("https://media.example.com/%d.jpg", i),
			// oversized attachments are still relocated
			Size: 20 << 20,
		})
	}
	p.Post(domain.Message{
		ID:          10,
		ChannelID:   sourceID,
		Content:     "   https://media.example.com/last.gif https://x.com/clip.mp4  ",
		Attachments: attachments,
	})

	res := w.Handle(context.Background(), replyTo(10))
	require.Equal(t, OutcomeRelocated, res.Outcome)
	assert.Len(t, res.Content.Images, 13)

	sent := p.SentTo(destID)
	require.Len(t, sent, 4)
	assert.Equal(t, "https://media.example.com/last.gif https://x.com/clip.mp4", sent[0].Text)
	assert.Len(t, sent[1].ImageURLs, 10)
	assert.Equal(t, []string{
		"https://media.example.com/10.jpg",
		"https://media.example.com/11.jpg",
		"https://media.example.com/last.gif",
	}, sent[2].ImageURLs)
	assert.Equal(t, "https://x.com/clip.mp4", sent[3].Text)
}

func TestRelocateMissingOriginal(t *testing.T) {
	w, p := newWorkflow(t)

	res := w.Handle(context.Background(), replyTo(10))
	assert.Equal(t, OutcomeSourceMissing, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
	assert.Empty(t, p.Deleted)
	assert.Empty(t, p.Sent)
}

func TestRelocateFetchFailure(t *testing.T) {
	w, p := newWorkflow(t)
	p.FetchErr = fmt.Errorf("gateway timeout: %w", domain.ErrTransient)

	res := w.Handle(context.Background(), replyTo(10))
	assert.Equal(t, OutcomeFetchFailed, res.Outcome)
	assert.Empty(t, p.Deleted)
	assert.Empty(t, p.Sent)
}

func TestRelocateNoContent(t *testing.T) {
	w, p := newWorkflow(t)
	p.Post(domain.Message{ID: 10, ChannelID: sourceID, Content: "just words"})

	res := w.Handle(context.Background(), replyTo(10))
	assert.Equal(t, OutcomeNoContent, res.Outcome)
	assert.Empty(t, p.Deleted)
	assert.Empty(t, p.Sent)
}

func TestRelocateDeleteDenied(t *testing.T) {
	w, p := newWorkflow(t)
	p.Post(domain.Message{ID: 10, ChannelID: sourceID, Content: "https://x.com/a.png"})
	p.DeleteErr = fmt.Errorf("missing access: %w", domain.ErrPermissionDenied)

	res := w.Handle(context.Background(), replyTo(10))
	assert.Equal(t, OutcomeDeleteFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrPermissionDenied)
	assert.Empty(t, p.Sent)
}

func TestRelocatePartialAfterDelete(t *testing.T) {
	w, p := newWorkflow(t)
	p.Post(domain.Message{ID: 10, ChannelID: sourceID, Content: "hi https://x.com/a.png https://x.com/page"})
	p.SendErrFn = func(_ snowflake.ID, msg domain.Outbound) error {
		if len(msg.ImageURLs) > 0 {
			return fmt.Errorf("upload: %w", domain.ErrTransient)
		}
		return nil
	}

	res := w.Handle(context.Background(), replyTo(10))
	assert.Equal(t, OutcomeRelocatedPartial, res.Outcome)
	assert.Equal(t, []snowflake.ID{10}, p.Deleted)
	assert.Equal(t, 1, res.Delivery.Failed)
	assert.Equal(t, 2, res.Delivery.Sent)
	assert.ErrorIs(t, res.Err, domain.ErrTransient)

	sent := p.SentTo(destID)
	require.Len(t, sent, 2)
	assert.Equal(t, "https://x.com/page", sent[1].Text)
}
