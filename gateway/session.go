package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session implements Client over a discordgo session and feeds gateway
// events to the registered handlers.
type Session struct {
	session *discordgo.Session
	status  string
	log     *zap.SugaredLogger
}

var _ Client = (*Session)(nil)

func NewSession(token, status string, log *zap.SugaredLogger) (*Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "create discord session")
	}
	// Handlers run on the read loop in delivery order. Anything slow must
	// hand off to its own goroutine.
	s.SyncEvents = true
	return &Session{session: s, status: status, log: log}, nil
}

// Open connects to the gateway. Handlers should be registered before so
// that no guild availability event is missed.
func (c *Session) Open() error {
	c.session.Identify.Intents = Intents
	c.session.State.TrackVoice = true

	c.log.Info("Opening Websocket connection")
	if err := c.session.Open(); err != nil {
		return errors.Wrap(err, "open websocket connection")
	}
	if c.status != "" {
		if err := c.session.UpdateListeningStatus(c.status); err != nil {
			c.log.Warnw("Could not update bot status", "error", err)
		}
	}
	return nil
}

func (c *Session) Close() error {
	return errors.Wrap(c.session.Close(), "close websocket connection")
}

// SyncCommands replaces every global application command with defs.
func (c *Session) SyncCommands(defs []*discordgo.ApplicationCommand) error {
	if c.session.State.User == nil {
		return errors.New("session is not ready")
	}
	c.log.Info("Adding commands")
	_, err := c.session.ApplicationCommandBulkOverwrite(c.session.State.User.ID, "", defs)
	return errors.Wrap(err, "overwrite application commands")
}

// OnVoiceStateUpdate runs handler on the read loop, so it sees a guild's
// events in delivery order and must not block.
func (c *Session) OnVoiceStateUpdate(handler func(VoiceStateEvent)) {
	c.session.AddHandler(func(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		ev, ok := c.voiceStateEvent(vs)
		if !ok {
			return
		}
		handler(ev)
	})
}

// OnGuildAvailable fires for every guild the connection receives, on
// startup and after outages.
func (c *Session) OnGuildAvailable(handler func(guildID string)) {
	c.session.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		if g == nil || g.Guild == nil || g.Unavailable {
			return
		}
		handler(g.ID)
	})
}

func (c *Session) OnCommand(handler func(*CommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		ev := commandEvent(ic)
		ev.Respond = responder(s, ic.Interaction)
		// setup waits on later messages, which arrive on this same loop
		go handler(ev)
	})
}

func (c *Session) voiceStateEvent(vs *discordgo.VoiceStateUpdate) (VoiceStateEvent, bool) {
	if vs == nil || vs.VoiceState == nil || vs.GuildID == "" || vs.UserID == "" {
		return VoiceStateEvent{}, false
	}
	ev := VoiceStateEvent{
		GuildID:        vs.GuildID,
		UserID:         vs.UserID,
		AfterChannelID: vs.ChannelID,
	}
	if vs.BeforeUpdate != nil {
		ev.BeforeChannelID = vs.BeforeUpdate.ChannelID
	}
	if ev.BeforeChannelID == ev.AfterChannelID {
		// mute, deafen, stream...
		return ev, false
	}

	member := vs.Member
	if member == nil || member.User == nil {
		m, err := c.Member(context.Background(), vs.GuildID, vs.UserID)
		if err != nil {
			c.log.Debugw("Could not resolve voice state member", "guild_id", vs.GuildID, "user_id", vs.UserID, "error", err)
		}
		member = m
	}
	if member != nil {
		ev.DisplayName = DisplayName(member)
		if member.User != nil {
			ev.IsBot = member.User.Bot
		}
	}
	if ev.DisplayName == "" {
		ev.DisplayName = vs.UserID
	}
	return ev, true
}

func responder(s *discordgo.Session, i *discordgo.Interaction) func(string, bool) error {
	var (
		mu        sync.Mutex
		responded bool
	)
	return func(content string, ephemeral bool) error {
		mu.Lock()
		defer mu.Unlock()

		var flags discordgo.MessageFlags
		if ephemeral {
			flags = discordgo.MessageFlagsEphemeral
		}
		if !responded {
			responded = true
			err := s.InteractionRespond(i, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
			})
			return errors.Wrap(err, "respond to interaction")
		}
		_, err := s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: content, Flags: flags})
		return errors.Wrap(err, "send follow-up message")
	}
}

func (c *Session) AwaitMessage(ctx context.Context, channelID, userID string) (string, error) {
	answers := make(chan string, 1)
	remove := c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m == nil || m.Message == nil || m.Author == nil {
			return
		}
		if m.ChannelID != channelID || m.Author.ID != userID {
			return
		}
		select {
		case answers <- m.Content:
		default:
		}
	})
	defer remove()

	select {
	case content := <-answers:
		return content, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// notFoundCodes are the JSON error codes Discord uses for vanished resources.
var notFoundCodes = map[int]struct{}{
	discordgo.ErrCodeUnknownChannel: {},
	discordgo.ErrCodeUnknownGuild:   {},
	discordgo.ErrCodeUnknownMember:  {},
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		if _, ok := notFoundCodes[restErr.Message.Code]; ok {
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// wrap annotates err and maps vanished resources to ErrNotFound.
func wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if isRESTNotFound(err) || errors.Is(err, discordgo.ErrStateNotFound) {
		return errors.Wrapf(ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
