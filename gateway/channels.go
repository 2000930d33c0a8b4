package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Lookups read the state cache first and fall back to the REST API.

func (c *Session) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	if ch, err := c.session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "get channel %s", channelID)
	}
	return ch, nil
}

func (c *Session) Guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := c.session.State.Guild(guildID); err == nil {
		return g, nil
	}
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "get guild %s", guildID)
	}
	return g, nil
}

func (c *Session) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := c.session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "get member %s of guild %s", userID, guildID)
	}
	return m, nil
}

func (c *Session) CreateCategory(ctx context.Context, guildID, name string) (*discordgo.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "create category %q", name)
	}
	return ch, nil
}

func (c *Session) CreateVoiceChannel(ctx context.Context, guildID, categoryID, name string, limit int, ownerID string) (*discordgo.Channel, error) {
	data := discordgo.GuildChannelCreateData{
		Name:      name,
		Type:      discordgo.ChannelTypeGuildVoice,
		ParentID:  categoryID,
		UserLimit: limit,
	}
	if ownerID != "" {
		data.PermissionOverwrites = []*discordgo.PermissionOverwrite{
			// the @everyone role shares the guild id
			{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionVoiceConnect},
			{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: OwnerPermissions},
		}
	}
	ch, err := c.session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap(err, "create voice channel %q", name)
	}
	return ch, nil
}

func (c *Session) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return wrap(err, "delete channel %s", channelID)
}

// EditChannel patches the channel directly: discordgo's ChannelEdit drops a
// zero user limit.
func (c *Session) EditChannel(ctx context.Context, channelID string, edit ChannelEdit) error {
	data := edit.payload()
	if len(data) == 0 {
		return nil
	}
	endpoint := discordgo.EndpointChannel(channelID)
	_, err := c.session.RequestWithBucketID("PATCH", endpoint, data, endpoint, discordgo.WithContext(ctx))
	return wrap(err, "edit channel %s", channelID)
}

func (c *Session) MoveMember(ctx context.Context, guildID, userID, channelID string) error {
	err := c.session.GuildMemberMove(guildID, userID, &channelID, discordgo.WithContext(ctx))
	return wrap(err, "move member %s to %s", userID, channelID)
}

// SetConnectPermission flips the connect bit of targetID's overwrite and
// keeps every other bit already set on it.
func (c *Session) SetConnectPermission(ctx context.Context, channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow bool) error {
	ch, err := c.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	allowBits, denyBits := overwriteBits(ch, targetID)
	if allow {
		allowBits |= discordgo.PermissionVoiceConnect
		denyBits &^= discordgo.PermissionVoiceConnect
	} else {
		denyBits |= discordgo.PermissionVoiceConnect
		allowBits &^= discordgo.PermissionVoiceConnect
	}
	err = c.session.ChannelPermissionSet(channelID, targetID, targetType, allowBits, denyBits, discordgo.WithContext(ctx))
	return wrap(err, "set connect permission of %s on %s", targetID, channelID)
}

func (c *Session) GrantOwnerPermissions(ctx context.Context, channelID, userID string) error {
	ch, err := c.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	allowBits, denyBits := overwriteBits(ch, userID)
	allowBits |= OwnerPermissions
	denyBits &^= OwnerPermissions
	err = c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allowBits, denyBits, discordgo.WithContext(ctx))
	return wrap(err, "grant owner permissions to %s on %s", userID, channelID)
}

func overwriteBits(ch *discordgo.Channel, targetID string) (allow, deny int64) {
	for _, o := range ch.PermissionOverwrites {
		if o != nil && o.ID == targetID {
			return o.Allow, o.Deny
		}
	}
	return 0, 0
}

// ChannelMembers lists the users connected to channelID according to the
// voice state cache.
func (c *Session) ChannelMembers(_ context.Context, guildID, channelID string) ([]string, error) {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, errors.Wrapf(err, "read voice states of guild %s", guildID)
	}
	c.session.State.RLock()
	defer c.session.State.RUnlock()

	seen := make(map[string]struct{})
	var members []string
	for _, vs := range guild.VoiceStates {
		if vs == nil || vs.ChannelID != channelID || vs.UserID == "" {
			continue
		}
		if _, ok := seen[vs.UserID]; ok {
			continue
		}
		seen[vs.UserID] = struct{}{}
		members = append(members, vs.UserID)
	}
	return members, nil
}

func (c *Session) UserVoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	vs, err := c.session.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "read voice state of %s", userID)
	}
	return vs.ChannelID, nil
}

func (c *Session) VoiceChannelsInCategory(ctx context.Context, guildID, categoryID string) ([]*discordgo.Channel, error) {
	var all []*discordgo.Channel
	if guild, err := c.session.State.Guild(guildID); err == nil {
		c.session.State.RLock()
		all = append(all, guild.Channels...)
		c.session.State.RUnlock()
	} else {
		all, err = c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, wrap(err, "list channels of guild %s", guildID)
		}
	}

	var voice []*discordgo.Channel
	for _, ch := range all {
		if IsVoice(ch) && ch.ParentID == categoryID {
			voice = append(voice, ch)
		}
	}
	return voice, nil
}
