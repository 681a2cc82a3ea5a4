// Package chat declares the narrow view of the chat platform the relay works against.
package chat

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"mediarelay/internal/domain"
)

// Platform is the set of platform calls used by the relocation workflow and the
// scan task. Errors wrap one of the domain error classes.
type Platform interface {
	// SelfID is the bot's own user ID.
	SelfID() snowflake.ID

	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (domain.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error
	Send(ctx context.Context, channelID snowflake.ID, msg domain.Outbound) error

	// History returns every message in the channel with an ID greater than after.
	// Order is unspecified.
	History(ctx context.Context, channelID, after snowflake.ID) ([]domain.Message, error)

	// RoleMembers resolves the current members of a role.
	RoleMembers(ctx context.Context, guildID, roleID snowflake.ID) ([]domain.Member, error)

	// OpenDM returns the direct message channel with a user.
	OpenDM(ctx context.Context, userID snowflake.ID) (snowflake.ID, error)

	// Download fetches an attachment's bytes.
	Download(ctx context.Context, attachment domain.Attachment) ([]byte, error)
}
