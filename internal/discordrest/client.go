// Package discordrest implements chat.Platform on top of the disgo REST client.
package discordrest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sirupsen/logrus"

	"mediarelay/internal/domain"
)

const (
	// messagesPerPage is the most messages the history endpoint returns at once.
	messagesPerPage = 100
	// membersPerPage is the most members the list endpoint returns at once.
	membersPerPage = 1000
	// oldestSnowflake sorts before every real message ID.
	oldestSnowflake snowflake.ID = 1
)

// restAPI is the subset of rest.Rest the client calls.
type restAPI interface {
	GetMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) (*discord.Message, error)
	GetMessages(channelID snowflake.ID, around snowflake.ID, before snowflake.ID, after snowflake.ID, limit int, opts ...rest.RequestOpt) ([]discord.Message, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID, opts ...rest.RequestOpt) error
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	GetRoles(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.Role, error)
	GetMembers(guildID snowflake.ID, limit int, after snowflake.ID, opts ...rest.RequestOpt) ([]discord.Member, error)
}

// Client talks to Discord.
type Client struct {
	rest      restAPI
	selfID    snowflake.ID
	http      *http.Client
	sizeLimit int
	log       logrus.FieldLogger
}

// New creates a Client. sizeLimit caps attachment downloads in bytes.
func New(api restAPI, selfID snowflake.ID, sizeLimit int, logger logrus.FieldLogger) *Client {
	return &Client{
		rest:      api,
		selfID:    selfID,
		http:      &http.Client{Timeout: 2 * time.Minute},
		sizeLimit: sizeLimit,
		log:       logger.WithField("component", "discord_rest"),
	}
}

func (c *Client) SelfID() snowflake.ID { return c.selfID }

func (c *Client) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (domain.Message, error) {
	msg, err := c.rest.GetMessage(channelID, messageID, rest.WithCtx(ctx))
	if err != nil {
		return domain.Message{}, classify("fetch message", err, domain.ErrPermissionDenied)
	}
	return MessageFromDiscord(*msg), nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	if err := c.rest.DeleteMessage(channelID, messageID, rest.WithCtx(ctx)); err != nil {
		return classify("delete message", err, domain.ErrPermissionDenied)
	}
	return nil
}

func (c *Client) Send(ctx context.Context, channelID snowflake.ID, msg domain.Outbound) error {
	if _, err := c.rest.CreateMessage(channelID, buildMessage(msg), rest.WithCtx(ctx)); err != nil {
		return classify("create message", err, domain.ErrPermissionDenied)
	}
	return nil
}

// History pages forward from after until a short page is returned.
func (c *Client) History(ctx context.Context, channelID, after snowflake.ID) ([]domain.Message, error) {
	// disgo omits a zero after, and Discord then answers with the newest page.
	if after == 0 {
		after = oldestSnowflake
	}
	var out []domain.Message
	for {
		page, err := c.rest.GetMessages(channelID, 0, 0, after, messagesPerPage, rest.WithCtx(ctx))
		if err != nil {
			return nil, classify("get messages", err, domain.ErrPermissionDenied)
		}
		for _, m := range page {
			out = append(out, MessageFromDiscord(m))
			if m.ID > after {
				after = m.ID
			}
		}
		if len(page) < messagesPerPage {
			break
		}
	}
	c.log.WithFields(logrus.Fields{"channel_id": channelID, "count": len(out)}).Debug("Fetched channel history")
	return out, nil
}

// RoleMembers checks the role still exists and then lists the guild members holding it.
func (c *Client) RoleMembers(ctx context.Context, guildID, roleID snowflake.ID) ([]domain.Member, error) {
	roles, err := c.rest.GetRoles(guildID, rest.WithCtx(ctx))
	if err != nil {
		return nil, classify("get roles", err, domain.ErrPermissionDenied)
	}
	if !slices.ContainsFunc(roles, func(r discord.Role) bool { return r.ID == roleID }) {
		return nil, fmt.Errorf("role %d in guild %d: %w", roleID, guildID, domain.ErrNotFound)
	}

	var (
		members []domain.Member
		after   snowflake.ID
	)
	for {
		chunk, err := c.rest.GetMembers(guildID, membersPerPage, after, rest.WithCtx(ctx))
		if err != nil {
			return nil, classify("get members", err, domain.ErrPermissionDenied)
		}
		for _, m := range chunk {
			if slices.Contains(m.RoleIDs, roleID) {
				members = append(members, domain.Member{UserID: m.User.ID, Bot: m.User.Bot})
			}
		}
		if len(chunk) < membersPerPage {
			break
		}
		after = chunk[len(chunk)-1].User.ID
	}
	return members, nil
}

func (c *Client) OpenDM(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	channel, err := c.rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return 0, classify("create dm channel", err, domain.ErrForbidden)
	}
	return channel.ID(), nil
}

// Download fetches an attachment from the CDN, refusing bodies over the size limit.
func (c *Client) Download(ctx context.Context, attachment domain.Attachment) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachment.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", attachment.Filename, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w: %w", attachment.Filename, domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("download %s: %w", attachment.Filename, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("download %s: status %d: %w", attachment.Filename, resp.StatusCode, domain.ErrTransient)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.sizeLimit)+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w: %w", attachment.Filename, domain.ErrTransient, err)
	}
	if len(data) > c.sizeLimit {
		return nil, fmt.Errorf("download %s: body exceeds %d bytes", attachment.Filename, c.sizeLimit)
	}
	return data, nil
}

// classify wraps a REST error in the matching domain error class. denied is the
// class used for 403 responses.
func classify(op string, err error, denied error) error {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, denied, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
}

// buildMessage converts an Outbound into a disgo payload. Mentions in relayed text
// never ping anyone.
func buildMessage(msg domain.Outbound) discord.MessageCreate {
	create := discord.MessageCreate{
		Content:         msg.Text,
		AllowedMentions: &discord.AllowedMentions{},
	}
	if msg.SuppressEmbeds {
		create.Flags = discord.MessageFlagSuppressEmbeds
	}

	// Embeds sharing a URL are rendered by the client as a single gallery block.
	for _, u := range msg.ImageURLs {
		create.Embeds = append(create.Embeds, discord.Embed{
			URL:   msg.ImageURLs[0],
			Image: &discord.EmbedResource{URL: u},
		})
	}
	for _, f := range msg.Files {
		create.Files = append(create.Files, discord.NewFile(f.Name, "", bytes.NewReader(f.Data)))
	}
	return create
}

// MessageFromDiscord converts a disgo message into the relay's model.
func MessageFromDiscord(m discord.Message) domain.Message {
	out := domain.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    domain.Author{ID: m.Author.ID, Bot: m.Author.Bot},
		Content:   m.Content,
	}
	for _, a := range m.Attachments {
		att := domain.Attachment{ID: a.ID, Filename: a.Filename, Size: a.Size, URL: a.URL}
		if a.ContentType != nil {
			att.ContentType = *a.ContentType
		}
		out.Attachments = append(out.Attachments, att)
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != nil {
		ref := *m.MessageReference.MessageID
		out.ReplyTo = &ref
	}
	for _, u := range m.Mentions {
		out.Mentions = append(out.Mentions, u.ID)
	}
	return out
}
