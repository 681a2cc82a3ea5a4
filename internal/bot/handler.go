package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	disgobot "github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/sirupsen/logrus"

	"mediarelay/internal/chat"
	"mediarelay/internal/config"
	"mediarelay/internal/discordrest"
	"mediarelay/internal/domain"
	"mediarelay/internal/relocate"
)

// Relocator handles inbound messages. Satisfied by *relocate.Workflow.
type Relocator interface {
	Handle(ctx context.Context, msg domain.Message) relocate.Result
}

// Handler owns the Discord gateway connection and routes inbound messages to the
// relocation workflow.
type Handler struct {
	client   disgobot.Client
	platform *discordrest.Client
	relocate Relocator
	log      logrus.FieldLogger

	// ctx is the lifetime of the gateway connection; set by Start.
	ctx context.Context
}

// NewHandler creates the Discord client and the relocation workflow.
func NewHandler(cfg config.Config, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")
	h := &Handler{log: log, ctx: context.Background()}

	client, err := disgo.New(cfg.DiscordBotToken,
		disgobot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
				gateway.IntentGuildMembers,
				gateway.IntentDirectMessages,
			),
		),
		disgobot.WithEventListeners(&events.ListenerAdapter{
			OnReady:         h.onReady,
			OnMessageCreate: h.onMessageCreate,
		}),
	)
	if err != nil {
		log.WithError(err).Error("Failed to create Discord client")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	h.client = client
	h.platform = discordrest.New(client.Rest(), client.ID(), cfg.AttachmentSizeLimit, logger)
	h.relocate = relocate.New(relocate.Config{
		SourceChannelID:      cfg.SourceChannelID,
		DestinationChannelID: cfg.DestChannelID,
	}, h.platform, logger)

	log.WithField("bot_id", client.ID()).Info("Discord bot handler initialized")
	return h, nil
}

// Platform returns the REST-backed chat platform shared with the scan task.
func (h *Handler) Platform() chat.Platform {
	return h.platform
}

// Start opens the gateway and blocks until ctx is cancelled.
func (h *Handler) Start(ctx context.Context) error {
	h.ctx = ctx
	h.log.Info("Opening Discord gateway...")
	if err := h.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()

	h.log.Info("Closing Discord gateway...")
	h.client.Close(context.Background())
	h.log.Info("Discord gateway closed.")
	return nil
}

// Close releases the client without waiting on a context. Used by one-shot commands.
func (h *Handler) Close() {
	h.client.Close(context.Background())
}

func (h *Handler) onReady(event *events.Ready) {
	h.log.WithFields(logrus.Fields{
		"user":   event.User.Username,
		"bot_id": event.User.ID,
	}).Info("Logged in")
}

// onMessageCreate runs synchronously on the gateway's event goroutine, so messages
// are relocated one at a time in arrival order.
func (h *Handler) onMessageCreate(event *events.MessageCreate) {
	msg := discordrest.MessageFromDiscord(event.Message)
	res := h.relocate.Handle(h.ctx, msg)
	if res.Outcome != relocate.OutcomeIgnored {
		h.log.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"outcome":    res.Outcome,
		}).Debug("Handled relocation trigger")
	}
}
