package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/service"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const (
	maxChannelName = 100
	maxUserLimit   = 99
)

const helpText = "**🎧 VoiceMaster Commands**\n" +
	"Join the Join to Create channel to get your own voice channel. It is deleted once everyone has left.\n\n" +
	"**🛠️ Admin Commands**\n" +
	"`/voice setup` - The first-time setup for the bot.\n" +
	"`/voice edit rename` - Rename the creation channel or category.\n" +
	"`/voice edit select` - Select a different creation channel or category.\n" +
	"`/voice list` - Lists all active temporary channels.\n" +
	"`/voice auditlog [count]` - Shows recent bot activity.\n" +
	"`/voice config [cleanup]` - Shows or changes cleanup on startup.\n\n" +
	"**👤 User Commands**\n" +
	"`/voice lock` - Locks your channel so nobody can join.\n" +
	"`/voice unlock` - Unlocks your channel for everyone.\n" +
	"`/voice permit @user` - Allows a specific user to join your locked channel.\n" +
	"`/voice claim` - Claims a channel whose owner has left.\n" +
	"`/voice name <new_name>` - Sets a custom name for your channel.\n" +
	"`/voice limit <number>` - Sets a user limit for your channel (0 for none)."

func (r *Router) help(_ context.Context, ev *gateway.CommandEvent) error {
	r.reply(ev, helpText, false)
	return nil
}

// ownedChannel returns the voice channel the invoker is in, provided the
// invoker owns it.
func (r *Router) ownedChannel(ctx context.Context, ev *gateway.CommandEvent) (*models.VoiceChannel, error) {
	channelID, err := r.gateway.UserVoiceChannel(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, errNotInVoice
	}
	vc, err := r.channels.GetVoiceChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if vc == nil || vc.OwnerID != ev.UserID {
		return nil, errNotOwner
	}
	return vc, nil
}

// liveChannel returns the owned channel the invoker is sitting in, or nil.
func (r *Router) liveChannel(ctx context.Context, ev *gateway.CommandEvent) (*discordgo.Channel, error) {
	vc, err := r.ownedChannel(ctx, ev)
	var uerr *userError
	if errors.As(err, &uerr) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch, err := r.gateway.Channel(ctx, vc.ChannelID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil
	}
	return ch, err
}

func (r *Router) lock(ctx context.Context, ev *gateway.CommandEvent) error {
	return r.setLocked(ctx, ev, true)
}

func (r *Router) unlock(ctx context.Context, ev *gateway.CommandEvent) error {
	return r.setLocked(ctx, ev, false)
}

func (r *Router) setLocked(ctx context.Context, ev *gateway.CommandEvent, locked bool) error {
	vc, err := r.ownedChannel(ctx, ev)
	if err != nil {
		return err
	}
	// The @everyone role shares the guild's ID.
	if err := r.gateway.SetConnectPermission(ctx, vc.ChannelID, ev.GuildID, discordgo.PermissionOverwriteTypeRole, !locked); err != nil {
		return err
	}

	event, verb, msg := models.EventChannelUnlocked, "unlocked", "🔓 Channel unlocked."
	if locked {
		event, verb, msg = models.EventChannelLocked, "locked", "🔒 Channel locked."
	}
	r.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      event,
		UserID:    ev.UserID,
		ChannelID: vc.ChannelID,
		Details:   fmt.Sprintf("User %s (%s) %s channel %s.", ev.DisplayName, ev.UserID, verb, vc.ChannelID),
	})
	r.reply(ev, msg, true)
	return nil
}

func (r *Router) permit(ctx context.Context, ev *gateway.CommandEvent) error {
	memberID, ok := ev.String("member")
	if !ok || memberID == "" {
		return userErrorf("Please mention the member to permit.")
	}
	vc, err := r.ownedChannel(ctx, ev)
	if err != nil {
		return err
	}
	if err := r.gateway.SetConnectPermission(ctx, vc.ChannelID, memberID, discordgo.PermissionOverwriteTypeMember, true); err != nil {
		return err
	}
	r.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      models.EventChannelPermit,
		UserID:    ev.UserID,
		ChannelID: vc.ChannelID,
		Details:   fmt.Sprintf("User %s (%s) permitted <@%s> (%s) to join channel %s.", ev.DisplayName, ev.UserID, memberID, memberID, vc.ChannelID),
	})
	r.reply(ev, fmt.Sprintf("✅ <@%s> can now join your channel.", memberID), true)
	return nil
}

func (r *Router) claim(ctx context.Context, ev *gateway.CommandEvent) error {
	channelID, err := r.gateway.UserVoiceChannel(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return err
	}
	if channelID == "" {
		return errNotInVoice
	}
	vc, err := r.channels.GetVoiceChannel(ctx, channelID)
	if err != nil {
		return err
	}
	if vc == nil {
		return userErrorf("This channel is not a temporary channel managed by VoiceMaster.")
	}
	if vc.OwnerID == ev.UserID {
		r.reply(ev, "You already own this channel.", true)
		return nil
	}

	members, err := r.gateway.ChannelMembers(ctx, ev.GuildID, channelID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m == vc.OwnerID {
			return userErrorf("The owner, <@%s>, is still in the channel. You cannot claim it.", vc.OwnerID)
		}
	}

	oldOwner := vc.OwnerID
	if err := r.channels.UpdateVoiceChannelOwner(ctx, channelID, ev.UserID); err != nil {
		return err
	}
	if err := r.gateway.GrantOwnerPermissions(ctx, channelID, ev.UserID); err != nil {
		return err
	}
	r.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      models.EventChannelClaimed,
		UserID:    ev.UserID,
		ChannelID: channelID,
		Details:   fmt.Sprintf("User %s (%s) claimed ownership of channel %s from old owner ID %s.", ev.DisplayName, ev.UserID, channelID, oldOwner),
	})
	r.reply(ev, fmt.Sprintf("👑 <@%s>, you are now the owner of this channel!", ev.UserID), true)
	return nil
}

func (r *Router) name(ctx context.Context, ev *gateway.CommandEvent) error {
	raw, _ := ev.String("name")
	newName := strings.TrimSpace(raw)
	if newName == "" {
		return userErrorf("Please provide a channel name.")
	}
	if utf8.RuneCountInString(newName) > maxChannelName {
		return userErrorf("Channel names are limited to %d characters.", maxChannelName)
	}

	if err := r.channels.UpdateUserChannelName(ctx, ev.UserID, newName); err != nil {
		return err
	}
	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventUserDefaultNameSet,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("User %s (%s) set default channel name to '%s'.", ev.DisplayName, ev.UserID, newName),
	})

	live, err := r.liveChannel(ctx, ev)
	if err != nil {
		return err
	}
	if live != nil {
		oldName := live.Name
		if err := r.gateway.EditChannel(ctx, live.ID, gateway.ChannelEdit{Name: &newName}); err != nil {
			return err
		}
		r.log.Infof("Live channel %s renamed from '%s' to '%s' by owner %s", live.ID, oldName, newName, ev.UserID)
		r.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      models.EventLiveChannelNameChanged,
			UserID:    ev.UserID,
			ChannelID: live.ID,
			Details:   fmt.Sprintf("User %s (%s) changed live channel name from '%s' to '%s'.", ev.DisplayName, ev.UserID, oldName, newName),
		})
	}

	r.reply(ev, fmt.Sprintf("Your channel name has been set to **%s**. "+
		"It will apply to your current (if you own one and are in it) and all future channels.", newName), true)
	return nil
}

func (r *Router) limit(ctx context.Context, ev *gateway.CommandEvent) error {
	value, ok := ev.Int("limit")
	if !ok || value < 0 || value > maxUserLimit {
		return userErrorf("Please provide a limit between 0 (unlimited) and %d.", maxUserLimit)
	}
	newLimit := int(value)

	if err := r.channels.UpdateUserChannelLimit(ctx, ev.UserID, newLimit); err != nil {
		return err
	}
	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventUserDefaultLimitSet,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("User %s (%s) set default channel limit to '%d'.", ev.DisplayName, ev.UserID, newLimit),
	})

	live, err := r.liveChannel(ctx, ev)
	if err != nil {
		return err
	}
	if live != nil {
		oldLimit := live.UserLimit
		if err := r.gateway.EditChannel(ctx, live.ID, gateway.ChannelEdit{UserLimit: &newLimit}); err != nil {
			return err
		}
		r.log.Infof("Live channel %s limit changed from %d to %d by owner %s", live.ID, oldLimit, newLimit, ev.UserID)
		r.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      models.EventLiveChannelLimitChanged,
			UserID:    ev.UserID,
			ChannelID: live.ID,
			Details:   fmt.Sprintf("User %s (%s) changed live channel limit from %d to %d.", ev.DisplayName, ev.UserID, oldLimit, newLimit),
		})
	}

	shown := "unlimited"
	if newLimit > 0 {
		shown = fmt.Sprint(newLimit)
	}
	r.reply(ev, fmt.Sprintf("Your channel limit has been set to **%s**. "+
		"It will apply to your current (if you own one and are in it) and all future channels.", shown), true)
	return nil
}
