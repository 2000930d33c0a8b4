package gateway

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CommandEvent is a slash command invocation flattened to what handlers need.
type CommandEvent struct {
	GuildID     string
	ChannelID   string
	UserID      string
	DisplayName string
	Permissions int64
	Command     string
	// Path holds the subcommand group and subcommand, e.g. ["edit", "rename"].
	Path    []string
	Options map[string]interface{}

	// Respond answers the interaction. The first call responds, later calls
	// send follow-up messages.
	Respond func(content string, ephemeral bool) error
}

func (e *CommandEvent) Subcommand() string {
	return strings.Join(e.Path, " ")
}

func (e *CommandEvent) IsAdmin() bool {
	return e.Permissions&discordgo.PermissionAdministrator != 0
}

func (e *CommandEvent) String(name string) (string, bool) {
	v, ok := e.Options[name].(string)
	return v, ok
}

func (e *CommandEvent) Int(name string) (int64, bool) {
	v, ok := e.Options[name].(int64)
	return v, ok
}

func (e *CommandEvent) Bool(name string) (bool, bool) {
	v, ok := e.Options[name].(bool)
	return v, ok
}

// commandEvent builds the event for an application command interaction.
// respond is left for the caller to fill.
func commandEvent(ic *discordgo.InteractionCreate) *CommandEvent {
	data := ic.ApplicationCommandData()
	ev := &CommandEvent{
		GuildID:   ic.GuildID,
		ChannelID: ic.ChannelID,
		Command:   data.Name,
		Options:   make(map[string]interface{}),
	}
	if ic.Member != nil {
		ev.Permissions = ic.Member.Permissions
		ev.DisplayName = DisplayName(ic.Member)
		if ic.Member.User != nil {
			ev.UserID = ic.Member.User.ID
		}
	}
	if ev.UserID == "" && ic.User != nil {
		ev.UserID = ic.User.ID
		ev.DisplayName = DisplayName(&discordgo.Member{User: ic.User})
	}

	options := data.Options
	for len(options) == 1 && (options[0].Type == discordgo.ApplicationCommandOptionSubCommandGroup ||
		options[0].Type == discordgo.ApplicationCommandOptionSubCommand) {
		ev.Path = append(ev.Path, options[0].Name)
		options = options[0].Options
	}
	for _, opt := range options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionInteger:
			ev.Options[opt.Name] = opt.IntValue()
		case discordgo.ApplicationCommandOptionBoolean:
			ev.Options[opt.Name] = opt.BoolValue()
		case discordgo.ApplicationCommandOptionString:
			ev.Options[opt.Name] = opt.StringValue()
		default:
			// users, channels and roles resolve to their snowflake
			if id, ok := opt.Value.(string); ok {
				ev.Options[opt.Name] = id
			}
		}
	}
	return ev
}
