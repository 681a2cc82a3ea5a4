package domain

import "github.com/disgoorg/snowflake/v2"

// Author is the user who posted a message.
type Author struct {
	ID snowflake.ID `json:"id"`

	// Bot is set for automated accounts, including this bot itself.
	Bot bool `json:"bot"`
}

// Attachment is a file uploaded alongside a message.
type Attachment struct {
	ID          snowflake.ID `json:"id"`
	Filename    string       `json:"filename"`
	Size        int          `json:"size"`
	URL         string       `json:"url"`
	ContentType string       `json:"content_type,omitempty"`
}

// Message is a platform message as seen by the relay.
type Message struct {
	// ID is platform-assigned and grows over time, so it doubles as the scan cursor.
	ID        snowflake.ID `json:"id"`
	ChannelID snowflake.ID `json:"channel_id"`
	Author    Author       `json:"author"`
	Content   string       `json:"content"`

	Attachments []Attachment `json:"attachments,omitempty"`

	// ReplyTo is the ID of the message this one replies to, nil when it is not a reply.
	ReplyTo *snowflake.ID `json:"reply_to,omitempty"`

	// Mentions lists the user IDs mentioned in the message.
	Mentions []snowflake.ID `json:"mentions,omitempty"`
}

// Mentioned reports whether the message mentions the given user.
func (m Message) Mentioned(userID snowflake.ID) bool {
	for _, id := range m.Mentions {
		if id == userID {
			return true
		}
	}
	return false
}

// Member is a guild member resolved from a role.
type Member struct {
	UserID snowflake.ID
	Bot    bool
}

// File is an in-memory upload.
type File struct {
	Name string
	Data []byte
}

// Outbound is one message to post. The platform adapter translates it into its own payload.
type Outbound struct {
	Text string

	// SuppressEmbeds disables the platform's automatic link previews.
	SuppressEmbeds bool

	// ImageURLs are rendered as image embeds.
	ImageURLs []string

	Files []File
}
