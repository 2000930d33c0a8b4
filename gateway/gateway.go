// Package gateway is the bot's only contact with the chat platform. The rest
// of the bot talks to the Client interface; Session implements it on top of
// discordgo.
package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when a channel, member or guild does not exist
// anymore on the platform.
var ErrNotFound = errors.New("gateway: resource not found")

// Intents requested when opening the connection.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers

const (
	// OwnerPermissions are granted to whoever owns a temporary channel.
	OwnerPermissions int64 = discordgo.PermissionManageChannels |
		discordgo.PermissionManageRoles |
		discordgo.PermissionVoiceConnect |
		discordgo.PermissionVoiceSpeak
)

type Client interface {
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	CreateCategory(ctx context.Context, guildID, name string) (*discordgo.Channel, error)
	// CreateVoiceChannel creates a voice channel under categoryID. When ownerID
	// is set the channel gets the owner overwrites and @everyone may connect.
	CreateVoiceChannel(ctx context.Context, guildID, categoryID, name string, limit int, ownerID string) (*discordgo.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error
	MoveMember(ctx context.Context, guildID, userID, channelID string) error
	SetConnectPermission(ctx context.Context, channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow bool) error
	GrantOwnerPermissions(ctx context.Context, channelID, userID string) error
	ChannelMembers(ctx context.Context, guildID, channelID string) ([]string, error)
	// UserVoiceChannel returns "" when the member is not connected.
	UserVoiceChannel(ctx context.Context, guildID, userID string) (string, error)
	VoiceChannelsInCategory(ctx context.Context, guildID, categoryID string) ([]*discordgo.Channel, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Guild(ctx context.Context, guildID string) (*discordgo.Guild, error)
	// AwaitMessage blocks until userID posts in channelID or ctx is done.
	AwaitMessage(ctx context.Context, channelID, userID string) (string, error)
}

// ChannelEdit only sends the fields that are set. A zero UserLimit is sent
// as-is and means unlimited.
type ChannelEdit struct {
	Name      *string
	UserLimit *int
}

func (e ChannelEdit) payload() map[string]interface{} {
	data := make(map[string]interface{}, 2)
	if e.Name != nil {
		data["name"] = *e.Name
	}
	if e.UserLimit != nil {
		data["user_limit"] = *e.UserLimit
	}
	return data
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	DisplayName     string
	IsBot           bool
	BeforeChannelID string
	AfterChannelID  string
}

// DisplayName prefers the guild nickname, then the global name, then the username.
func DisplayName(m *discordgo.Member) string {
	if m == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User == nil {
		return ""
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

func IsVoice(c *discordgo.Channel) bool {
	return c != nil && c.Type == discordgo.ChannelTypeGuildVoice
}

func IsCategory(c *discordgo.Channel) bool {
	return c != nil && c.Type == discordgo.ChannelTypeGuildCategory
}
