// Package commands serves the /voice slash command.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/service"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const CommandName = "voice"

const genericApology = "An unexpected error occurred. This has been logged for review. Please try again later."

var (
	minAuditCount = float64(1)
	dmPermission  = false

	botCommands = []*discordgo.ApplicationCommand{
		{
			Type:         discordgo.ChatApplicationCommand,
			Name:         CommandName,
			Description:  "Manage temporary voice channels",
			DMPermission: &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("help", "List all VoiceMaster commands"),
				subcommand("setup", "First-time setup of the join-to-create channel"),
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "edit",
					Description: "Edit the VoiceMaster configuration",
					Options: []*discordgo.ApplicationCommandOption{
						subcommand("rename", "Rename the creation channel or the category",
							&discordgo.ApplicationCommandOption{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "target",
								Description: "What to rename",
								Required:    true,
								Choices: []*discordgo.ApplicationCommandOptionChoice{
									{Name: "Join to Create channel", Value: "channel"},
									{Name: "Category", Value: "category"},
								},
							}),
						subcommand("select", "Select a different creation channel or category",
							&discordgo.ApplicationCommandOption{
								Type:         discordgo.ApplicationCommandOptionChannel,
								Name:         "channel",
								Description:  "New Join to Create channel",
								ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
							},
							&discordgo.ApplicationCommandOption{
								Type:         discordgo.ApplicationCommandOptionChannel,
								Name:         "category",
								Description:  "New category for temporary channels",
								ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
							}),
					},
				},
				subcommand("list", "List all active temporary channels"),
				subcommand("lock", "Lock your channel so nobody can join"),
				subcommand("unlock", "Unlock your channel for everyone"),
				subcommand("permit", "Allow a member to join your locked channel",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionUser,
						Name:        "member",
						Description: "Member to let in",
						Required:    true,
					}),
				subcommand("claim", "Claim a channel whose owner has left"),
				subcommand("name", "Set a custom name for your channel",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "name",
						Description: "New channel name",
						Required:    true,
						MaxLength:   maxChannelName,
					}),
				subcommand("limit", "Set a user limit for your channel (0 for none)",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "limit",
						Description: "Between 0 (unlimited) and 99",
						Required:    true,
					}),
				subcommand("auditlog", "Show recent VoiceMaster activity",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "count",
						Description: "Number of entries (default 10)",
						MinValue:    &minAuditCount,
						MaxValue:    service.MaxAuditLogCount,
					}),
				subcommand("config", "Show or change server settings",
					&discordgo.ApplicationCommandOption{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "cleanup",
						Description: "Delete empty temporary channels on startup",
					}),
			},
		},
	}
)

func subcommand(name, description string, options ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options:     options,
	}
}

// Definitions returns the application commands to overwrite on startup.
func Definitions() []*discordgo.ApplicationCommand {
	return botCommands
}

type handlerFunc func(ctx context.Context, ev *gateway.CommandEvent) error

// userError is answered ephemerally as is and never audited.
type userError struct {
	msg string
}

func (e *userError) Error() string {
	return e.msg
}

func userErrorf(format string, args ...interface{}) error {
	return &userError{msg: fmt.Sprintf(format, args...)}
}

var (
	errNotInVoice    = &userError{msg: "You are not in a voice channel."}
	errNotOwner      = &userError{msg: "You do not own this voice channel."}
	errNotAdmin      = &userError{msg: "🚫 You don't have the required permissions (`Administrator`) to use this command."}
	errNotConfigured = &userError{msg: "The bot has not been set up yet. Run `/voice setup` first."}
)

type Router struct {
	gateway       gateway.Client
	guilds        *service.GuildService
	channels      *service.VoiceChannelService
	auditLog      *service.AuditLogService
	promptTimeout time.Duration
	log           *zap.SugaredLogger

	handlers map[string]handlerFunc
}

func NewRouter(
	gw gateway.Client,
	guilds *service.GuildService,
	channels *service.VoiceChannelService,
	auditLog *service.AuditLogService,
	promptTimeout time.Duration,
	log *zap.SugaredLogger,
) *Router {
	r := &Router{
		gateway:       gw,
		guilds:        guilds,
		channels:      channels,
		auditLog:      auditLog,
		promptTimeout: promptTimeout,
		log:           log,
	}
	r.handlers = map[string]handlerFunc{
		"help":        r.help,
		"setup":       r.adminOnly(r.setup),
		"edit rename": r.adminOnly(r.editRename),
		"edit select": r.adminOnly(r.editSelect),
		"list":        r.adminOnly(r.list),
		"lock":        r.lock,
		"unlock":      r.unlock,
		"permit":      r.permit,
		"claim":       r.claim,
		"name":        r.name,
		"limit":       r.limit,
		"auditlog":    r.adminOnly(r.auditlog),
		"config":      r.adminOnly(r.config),
	}
	return r
}

func (r *Router) adminOnly(h handlerFunc) handlerFunc {
	return func(ctx context.Context, ev *gateway.CommandEvent) error {
		if !ev.IsAdmin() {
			return errNotAdmin
		}
		return h(ctx, ev)
	}
}

// Handle runs one /voice invocation. It never panics and always answers.
func (r *Router) Handle(ctx context.Context, ev *gateway.CommandEvent) {
	if ev.Command != CommandName {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorw("Command panicked", "command", ev.Subcommand(), "guild_id", ev.GuildID, "user_id", ev.UserID, "panic", p)
			r.reply(ev, genericApology, true)
		}
	}()

	if ev.GuildID == "" {
		r.reply(ev, "This command can only be used in a server.", true)
		return
	}
	h, ok := r.handlers[ev.Subcommand()]
	if !ok {
		h = r.help
	}
	r.log.Debugf("Running /%s %s for %s in guild %s", CommandName, ev.Subcommand(), ev.UserID, ev.GuildID)

	err := h(ctx, ev)
	var uerr *userError
	switch {
	case err == nil:
	case errors.As(err, &uerr):
		r.reply(ev, uerr.msg, true)
	default:
		r.log.Errorw("Command failed", "command", ev.Subcommand(), "guild_id", ev.GuildID, "user_id", ev.UserID, "error", err)
		r.reply(ev, genericApology, true)
	}
}

func (r *Router) reply(ev *gateway.CommandEvent, content string, ephemeral bool) {
	if err := ev.Respond(content, ephemeral); err != nil {
		r.log.Warnw("Could not answer command", "command", ev.Subcommand(), "guild_id", ev.GuildID, "error", err)
	}
}

func (r *Router) record(ctx context.Context, ev service.Event) {
	if err := r.auditLog.LogEvent(ctx, ev); err != nil {
		r.log.Errorw("Could not write audit entry", "guild_id", ev.GuildID, "event", ev.Type, "error", err)
	}
}

// prompt waits for the invoker's next message in the command channel.
func (r *Router) prompt(ctx context.Context, ev *gateway.CommandEvent) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.promptTimeout)
	defer cancel()
	return r.gateway.AwaitMessage(ctx, ev.ChannelID, ev.UserID)
}
