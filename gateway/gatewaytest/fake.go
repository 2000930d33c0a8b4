// Package gatewaytest provides an in-memory gateway.Client for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

type Move struct {
	GuildID   string
	UserID    string
	ChannelID string
}

type Edit struct {
	ChannelID string
	Name      *string
	UserLimit *int
}

type PermissionChange struct {
	ChannelID string
	TargetID  string
	// Connect is set for connect changes, Owner for owner grants.
	Connect *bool
	Owner   bool
}

// Fake keeps guilds, channels and voice states in memory and records every
// mutating call. Error fields inject failures.
type Fake struct {
	mu sync.Mutex

	guilds   map[string]*discordgo.Guild
	channels map[string]*discordgo.Channel
	members  map[string]*discordgo.Member
	voice    map[string]string
	answers  []string
	nextID   int

	CreateErr  error
	MoveErr    error
	DeleteErr  map[string]error
	ChannelErr map[string]error

	Created     []*discordgo.Channel
	Deleted     []string
	Moves       []Move
	Edits       []Edit
	Permissions []PermissionChange
}

var _ gateway.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		guilds:     make(map[string]*discordgo.Guild),
		channels:   make(map[string]*discordgo.Channel),
		members:    make(map[string]*discordgo.Member),
		voice:      make(map[string]string),
		DeleteErr:  make(map[string]error),
		ChannelErr: make(map[string]error),
	}
}

func key(guildID, userID string) string {
	return guildID + "/" + userID
}

func (f *Fake) AddGuild(guildID, ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guilds[guildID] = &discordgo.Guild{ID: guildID, OwnerID: ownerID}
}

func (f *Fake) AddCategory(guildID, channelID string) *discordgo.Channel {
	return f.AddChannel(&discordgo.Channel{ID: channelID, GuildID: guildID, Name: channelID, Type: discordgo.ChannelTypeGuildCategory})
}

func (f *Fake) AddVoiceChannel(guildID, categoryID, channelID string) *discordgo.Channel {
	return f.AddChannel(&discordgo.Channel{ID: channelID, GuildID: guildID, ParentID: categoryID, Name: channelID, Type: discordgo.ChannelTypeGuildVoice})
}

func (f *Fake) AddChannel(ch *discordgo.Channel) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
	return ch
}

// RemoveChannel deletes a channel behind the bot's back.
func (f *Fake) RemoveChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, channelID)
}

func (f *Fake) AddMember(guildID, userID, nick string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[key(guildID, userID)] = &discordgo.Member{GuildID: guildID, Nick: nick, User: &discordgo.User{ID: userID, Username: nick}}
}

// Connect places userID in channelID; an empty channelID disconnects.
func (f *Fake) Connect(guildID, userID, channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if channelID == "" {
		delete(f.voice, key(guildID, userID))
		return
	}
	f.voice[key(guildID, userID)] = channelID
}

// Answer queues replies returned by AwaitMessage in order.
func (f *Fake) Answer(answers ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answers...)
}

func (f *Fake) HasChannel(channelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.channels[channelID]
	return ok
}

func (f *Fake) ChannelByID(channelID string) *discordgo.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[channelID]
}

func (f *Fake) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ChannelErr[channelID]; err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, errors.Wrapf(gateway.ErrNotFound, "get channel %s", channelID)
	}
	return ch, nil
}

func (f *Fake) Guild(_ context.Context, guildID string) (*discordgo.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[guildID]
	if !ok {
		return nil, errors.Wrapf(gateway.ErrNotFound, "get guild %s", guildID)
	}
	return g, nil
}

func (f *Fake) Member(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[key(guildID, userID)]
	if !ok {
		return nil, errors.Wrapf(gateway.ErrNotFound, "get member %s", userID)
	}
	return m, nil
}

func (f *Fake) newID() string {
	f.nextID++
	return fmt.Sprintf("created-%d", f.nextID)
}

func (f *Fake) CreateCategory(_ context.Context, guildID, name string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	ch := &discordgo.Channel{ID: f.newID(), GuildID: guildID, Name: name, Type: discordgo.ChannelTypeGuildCategory}
	f.channels[ch.ID] = ch
	f.Created = append(f.Created, ch)
	return ch, nil
}

func (f *Fake) CreateVoiceChannel(_ context.Context, guildID, categoryID, name string, limit int, ownerID string) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	ch := &discordgo.Channel{
		ID:        f.newID(),
		GuildID:   guildID,
		ParentID:  categoryID,
		Name:      name,
		UserLimit: limit,
		Type:      discordgo.ChannelTypeGuildVoice,
	}
	if ownerID != "" {
		ch.PermissionOverwrites = []*discordgo.PermissionOverwrite{
			{ID: guildID, Type: discordgo.PermissionOverwriteTypeRole, Allow: discordgo.PermissionVoiceConnect},
			{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: gateway.OwnerPermissions},
		}
	}
	f.channels[ch.ID] = ch
	f.Created = append(f.Created, ch)
	return ch, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, channelID)
	if err := f.DeleteErr[channelID]; err != nil {
		return err
	}
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(gateway.ErrNotFound, "delete channel %s", channelID)
	}
	delete(f.channels, channelID)
	return nil
}

func (f *Fake) EditChannel(_ context.Context, channelID string, edit gateway.ChannelEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, Edit{ChannelID: channelID, Name: edit.Name, UserLimit: edit.UserLimit})
	ch, ok := f.channels[channelID]
	if !ok {
		return errors.Wrapf(gateway.ErrNotFound, "edit channel %s", channelID)
	}
	if edit.Name != nil {
		ch.Name = *edit.Name
	}
	if edit.UserLimit != nil {
		ch.UserLimit = *edit.UserLimit
	}
	return nil
}

func (f *Fake) MoveMember(_ context.Context, guildID, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Moves = append(f.Moves, Move{GuildID: guildID, UserID: userID, ChannelID: channelID})
	if f.MoveErr != nil {
		return f.MoveErr
	}
	f.voice[key(guildID, userID)] = channelID
	return nil
}

func (f *Fake) SetConnectPermission(_ context.Context, channelID, targetID string, _ discordgo.PermissionOverwriteType, allow bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(gateway.ErrNotFound, "set permission on %s", channelID)
	}
	f.Permissions = append(f.Permissions, PermissionChange{ChannelID: channelID, TargetID: targetID, Connect: &allow})
	return nil
}

func (f *Fake) GrantOwnerPermissions(_ context.Context, channelID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.channels[channelID]; !ok {
		return errors.Wrapf(gateway.ErrNotFound, "grant owner on %s", channelID)
	}
	f.Permissions = append(f.Permissions, PermissionChange{ChannelID: channelID, TargetID: userID, Owner: true})
	return nil
}

func (f *Fake) ChannelMembers(_ context.Context, guildID, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []string
	prefix := guildID + "/"
	for k, ch := range f.voice {
		if ch == channelID && len(k) > len(prefix) && k[:len(prefix)] == prefix {
			members = append(members, k[len(prefix):])
		}
	}
	sort.Strings(members)
	return members, nil
}

func (f *Fake) UserVoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[key(guildID, userID)], nil
}

func (f *Fake) VoiceChannelsInCategory(_ context.Context, guildID, categoryID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*discordgo.Channel
	for _, ch := range f.channels {
		if ch.GuildID == guildID && ch.ParentID == categoryID && gateway.IsVoice(ch) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *Fake) AwaitMessage(ctx context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	if len(f.answers) > 0 {
		answer := f.answers[0]
		f.answers = f.answers[1:]
		f.mu.Unlock()
		return answer, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

// DeletedCount reports how many delete attempts hit channelID.
func (f *Fake) DeletedCount(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.Deleted {
		if id == channelID {
			n++
		}
	}
	return n
}

func (f *Fake) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Created)
}
