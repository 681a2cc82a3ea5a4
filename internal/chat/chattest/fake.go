// Package chattest provides an in-memory chat.Platform for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"mediarelay/internal/domain"
)

// Sent is a message recorded by the fake.
type Sent struct {
	ChannelID snowflake.ID
	Msg       domain.Outbound
}

// Platform is a scriptable fake. Zero value is usable; set the error maps to inject failures.
type Platform struct {
	mu sync.Mutex

	Self snowflake.ID

	// Messages holds channel contents keyed by channel ID.
	Messages map[snowflake.ID][]domain.Message
	Members  map[snowflake.ID][]domain.Member
	Files    map[string][]byte

	FetchErr   error
	DeleteErr  error
	HistoryErr error
	RoleErr    error
	// SendErr fails sends to the given channel.
	SendErr map[snowflake.ID]error
	// SendErrFn, when set, decides per message whether a send fails.
	SendErrFn func(channelID snowflake.ID, msg domain.Outbound) error
	// DMErr fails opening a DM with the given user.
	DMErr       map[snowflake.ID]error
	DownloadErr map[string]error

	Deleted   []snowflake.ID
	Sent      []Sent
	Downloads []string
	Opened    []snowflake.ID
}

// New returns a fake whose bot user is self.
func New(self snowflake.ID) *Platform {
	return &Platform{
		Self:        self,
		Messages:    map[snowflake.ID][]domain.Message{},
		Members:     map[snowflake.ID][]domain.Member{},
		Files:       map[string][]byte{},
		SendErr:     map[snowflake.ID]error{},
		DMErr:       map[snowflake.ID]error{},
		DownloadErr: map[string]error{},
	}
}

// DMChannel is the channel ID the fake hands out for a user's DM.
func DMChannel(userID snowflake.ID) snowflake.ID {
	return userID + 1_000_000
}

// Post appends a message to a channel.
func (p *Platform) Post(msg domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages[msg.ChannelID] = append(p.Messages[msg.ChannelID], msg)
}

func (p *Platform) SelfID() snowflake.ID { return p.Self }

func (p *Platform) FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (domain.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FetchErr != nil {
		return domain.Message{}, p.FetchErr
	}
	for _, m := range p.Messages[channelID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return domain.Message{}, fmt.Errorf("message %d: %w", messageID, domain.ErrNotFound)
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	msgs := p.Messages[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			p.Messages[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			break
		}
	}
	p.Deleted = append(p.Deleted, messageID)
	return nil
}

func (p *Platform) Send(ctx context.Context, channelID snowflake.ID, msg domain.Outbound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.SendErr[channelID]; err != nil {
		return err
	}
	if p.SendErrFn != nil {
		if err := p.SendErrFn(channelID, msg); err != nil {
			return err
		}
	}
	p.Sent = append(p.Sent, Sent{ChannelID: channelID, Msg: msg})
	return nil
}

// History returns matching messages newest first, like the Discord API does.
func (p *Platform) History(ctx context.Context, channelID, after snowflake.ID) ([]domain.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.HistoryErr != nil {
		return nil, p.HistoryErr
	}
	var out []domain.Message
	msgs := p.Messages[channelID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID > after {
			out = append(out, msgs[i])
		}
	}
	return out, nil
}

func (p *Platform) RoleMembers(ctx context.Context, guildID, roleID snowflake.ID) ([]domain.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RoleErr != nil {
		return nil, p.RoleErr
	}
	members, ok := p.Members[roleID]
	if !ok {
		return nil, fmt.Errorf("role %d: %w", roleID, domain.ErrNotFound)
	}
	return members, nil
}

func (p *Platform) OpenDM(ctx context.Context, userID snowflake.ID) (snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.DMErr[userID]; err != nil {
		return 0, err
	}
	p.Opened = append(p.Opened, userID)
	return DMChannel(userID), nil
}

func (p *Platform) Download(ctx context.Context, attachment domain.Attachment) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Downloads = append(p.Downloads, attachment.URL)
	if err := p.DownloadErr[attachment.URL]; err != nil {
		return nil, err
	}
	if data, ok := p.Files[attachment.URL]; ok {
		return data, nil
	}
	return []byte(attachment.Filename), nil
}

// SentTo returns the messages delivered to a channel, in order.
func (p *Platform) SentTo(channelID snowflake.ID) []domain.Outbound {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Outbound
	for _, s := range p.Sent {
		if s.ChannelID == channelID {
			out = append(out, s.Msg)
		}
	}
	return out
}
