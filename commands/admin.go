package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Haibread/voicemaster/gateway"
	"github.com/Haibread/voicemaster/models"
	"github.com/Haibread/voicemaster/service"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// Replies stay below the 2000 character message limit.
const maxReplyLength = 1900

func (r *Router) configuredGuild(ctx context.Context, guildID string) (*models.Guild, error) {
	guild, err := r.guilds.GetGuildConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if guild == nil || !guild.Configured() {
		return nil, errNotConfigured
	}
	return guild, nil
}

func (r *Router) setup(ctx context.Context, ev *gateway.CommandEvent) error {
	r.reply(ev, "I'll guide you through setting up temporary voice channels. "+
		"First, enter the name for the new **category** where temporary channels will be created (e.g., 'Voice Channels'):", false)
	categoryName, err := r.promptName(ctx, ev)
	if err != nil {
		return r.setupFailed(ctx, ev, err)
	}
	category, err := r.gateway.CreateCategory(ctx, ev.GuildID, categoryName)
	if err != nil {
		return r.setupFailed(ctx, ev, err)
	}

	r.reply(ev, "Great! Now, enter the name for the **voice channel** users will join to create their own (e.g., 'Join to Create'):", false)
	channelName, err := r.promptName(ctx, ev)
	if err != nil {
		return r.setupFailed(ctx, ev, err)
	}
	channel, err := r.gateway.CreateVoiceChannel(ctx, ev.GuildID, category.ID, channelName, 0, "")
	if err != nil {
		return r.setupFailed(ctx, ev, err)
	}

	guild, err := r.gateway.Guild(ctx, ev.GuildID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return r.setupFailed(ctx, ev, err)
	}
	if guild == nil || guild.OwnerID == "" {
		return userErrorf("Could not determine the server owner. Setup aborted.")
	}
	if err := r.guilds.CreateOrUpdateGuild(ctx, ev.GuildID, guild.OwnerID, category.ID, channel.ID); err != nil {
		return r.setupFailed(ctx, ev, err)
	}
	r.log.Infof("Guild %s setup saved: category %s, creation channel %s", ev.GuildID, category.ID, channel.ID)

	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventBotSetup,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("Bot setup complete. Category: '%s' (%s), Creation Channel: '%s' (%s).",
			category.Name, category.ID, channel.Name, channel.ID),
	})
	r.reply(ev, fmt.Sprintf("✅ Setup complete! Users can now join '%s' to create their own channels.", channel.Name), false)
	return nil
}

// promptName waits for a non-blank answer.
func (r *Router) promptName(ctx context.Context, ev *gateway.CommandEvent) (string, error) {
	answer, err := r.prompt(ctx, ev)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", errors.New("name must not be empty")
	}
	return answer, nil
}

// setupFailed answers a failed setup step. Steps already committed stay.
func (r *Router) setupFailed(ctx context.Context, ev *gateway.CommandEvent, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		r.reply(ev, "Setup timed out. Please try again.", true)
		r.record(ctx, service.Event{
			GuildID: ev.GuildID,
			Type:    models.EventSetupTimedOut,
			UserID:  ev.UserID,
			Details: "Bot setup timed out due to no response.",
		})
		return nil
	}
	r.log.Errorw("Setup failed", "guild_id", ev.GuildID, "user_id", ev.UserID, "error", err)
	r.reply(ev, fmt.Sprintf("An error occurred during setup: %v. Please check logs.", err), true)
	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventSetupError,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("An error occurred during setup: %v", err),
	})
	return nil
}

type renameTarget struct {
	label     string
	prompt    string
	missing   string
	valid     func(*discordgo.Channel) bool
	renamed   models.AuditEventType
	timedOut  models.AuditEventType
	failed    models.AuditEventType
	timeoutAt string
}

var renameTargets = map[string]renameTarget{
	"channel": {
		label:     "Creation channel",
		prompt:    "Please type the new name for the 'Join to Create' channel:",
		missing:   "Error: Configured 'Join to Create' channel not found or is no longer a voice channel.",
		valid:     gateway.IsVoice,
		renamed:   models.EventChannelRenamed,
		timedOut:  models.EventChannelRenameTimedOut,
		failed:    models.EventChannelRenameError,
		timeoutAt: "Renaming 'Join' channel timed out.",
	},
	"category": {
		label:     "Category",
		prompt:    "Please type the new name for the temporary channels category:",
		missing:   "Error: Configured temporary channels category not found or is no longer a category.",
		valid:     gateway.IsCategory,
		renamed:   models.EventCategoryRenamed,
		timedOut:  models.EventCategoryRenameTimedOut,
		failed:    models.EventCategoryRenameError,
		timeoutAt: "Renaming category timed out.",
	},
}

func (r *Router) editRename(ctx context.Context, ev *gateway.CommandEvent) error {
	which, _ := ev.String("target")
	target, ok := renameTargets[which]
	if !ok {
		return userErrorf("Please choose what to rename: channel or category.")
	}
	guild, err := r.configuredGuild(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	id := *guild.CreationChannelID
	if which == "category" {
		id = *guild.VoiceCategoryID
	}

	ch, err := r.gateway.Channel(ctx, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return err
	}
	if ch == nil || !target.valid(ch) {
		return userErrorf("%s", target.missing)
	}
	oldName := ch.Name

	r.reply(ev, target.prompt, true)
	newName, err := r.promptName(ctx, ev)
	if err == nil {
		err = r.gateway.EditChannel(ctx, ch.ID, gateway.ChannelEdit{Name: &newName})
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.reply(ev, "Rename timed out. Please try again.", true)
		r.record(ctx, service.Event{GuildID: ev.GuildID, Type: target.timedOut, UserID: ev.UserID, ChannelID: ch.ID, Details: target.timeoutAt})
		return nil
	case err != nil:
		r.log.Errorw("Rename failed", "guild_id", ev.GuildID, "channel_id", ch.ID, "error", err)
		r.reply(ev, fmt.Sprintf("An error occurred: %v", err), true)
		r.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      target.failed,
			UserID:    ev.UserID,
			ChannelID: ch.ID,
			Details:   fmt.Sprintf("An error occurred while renaming: %v", err),
		})
		return nil
	}

	r.record(ctx, service.Event{
		GuildID:   ev.GuildID,
		Type:      target.renamed,
		UserID:    ev.UserID,
		ChannelID: ch.ID,
		Details:   fmt.Sprintf("%s renamed from '%s' to '%s'.", target.label, oldName, newName),
	})
	r.reply(ev, fmt.Sprintf("✅ %s renamed to **%s**.", target.label, newName), true)
	return nil
}

func (r *Router) editSelect(ctx context.Context, ev *gateway.CommandEvent) error {
	channelID, hasChannel := ev.String("channel")
	categoryID, hasCategory := ev.String("category")
	if !hasChannel && !hasCategory {
		return userErrorf("Please pick a new channel, a new category or both.")
	}
	guild, err := r.configuredGuild(ctx, ev.GuildID)
	if err != nil {
		return err
	}

	if hasChannel {
		if err := r.expectChannel(ctx, ev.GuildID, channelID, gateway.IsVoice, "voice channel"); err != nil {
			return err
		}
	}
	if hasCategory {
		if err := r.expectChannel(ctx, ev.GuildID, categoryID, gateway.IsCategory, "category"); err != nil {
			return err
		}
	}

	var lines []string
	if hasChannel {
		old := *guild.CreationChannelID
		if err := r.guilds.SetCreationChannel(ctx, ev.GuildID, channelID); err != nil {
			return err
		}
		r.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      models.EventCreationChannelChanged,
			UserID:    ev.UserID,
			ChannelID: channelID,
			Details:   fmt.Sprintf("'Join to Create' channel changed from %s to %s.", old, channelID),
		})
		lines = append(lines, fmt.Sprintf("✅ 'Join to Create' channel updated to <#%s>!", channelID))
	}
	if hasCategory {
		old := *guild.VoiceCategoryID
		if err := r.guilds.SetVoiceCategory(ctx, ev.GuildID, categoryID); err != nil {
			return err
		}
		r.record(ctx, service.Event{
			GuildID:   ev.GuildID,
			Type:      models.EventVoiceCategoryChanged,
			UserID:    ev.UserID,
			ChannelID: categoryID,
			Details:   fmt.Sprintf("Voice category changed from %s to %s.", old, categoryID),
		})
		lines = append(lines, fmt.Sprintf("✅ Category for temporary channels updated to <#%s>!", categoryID))
	}
	r.reply(ev, strings.Join(lines, "\n"), true)
	return nil
}

func (r *Router) expectChannel(ctx context.Context, guildID, channelID string, valid func(*discordgo.Channel) bool, kind string) error {
	ch, err := r.gateway.Channel(ctx, channelID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return err
	}
	if ch == nil || ch.GuildID != guildID || !valid(ch) {
		return userErrorf("<#%s> is not a %s of this server.", channelID, kind)
	}
	return nil
}

func (r *Router) list(ctx context.Context, ev *gateway.CommandEvent) error {
	records, err := r.guilds.GetVoiceChannelsByGuild(ctx, ev.GuildID)
	if err != nil {
		return err
	}

	var lines []string
	for _, vc := range records {
		ch, err := r.gateway.Channel(ctx, vc.ChannelID)
		if errors.Is(err, gateway.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		owner := fmt.Sprintf("Owner not found (ID: %s)", vc.OwnerID)
		if _, err := r.gateway.Member(ctx, ev.GuildID, vc.OwnerID); err == nil {
			owner = fmt.Sprintf("<@%s>", vc.OwnerID)
		}
		lines = append(lines, fmt.Sprintf("**%s** (<#%s>) - Owner: %s", ch.Name, ch.ID, owner))
	}

	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventListChannels,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("User %s listed active temporary channels.", ev.DisplayName),
	})
	if len(lines) == 0 {
		r.reply(ev, "There are no active temporary channels managed by VoiceMaster in this guild.", true)
		return nil
	}
	r.reply(ev, truncateLines("**Active Temporary Channels**", lines), false)
	return nil
}

func (r *Router) auditlog(ctx context.Context, ev *gateway.CommandEvent) error {
	count := int64(service.DefaultAuditLogCount)
	if v, ok := ev.Int("count"); ok {
		count = v
	}
	if count < 1 || count > service.MaxAuditLogCount {
		return userErrorf("Please provide a count between 1 and %d.", service.MaxAuditLogCount)
	}

	entries, err := r.auditLog.GetLatestLogs(ctx, ev.GuildID, int(count))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		r.reply(ev, "No audit log entries found for this guild.", true)
		return nil
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e))
	}
	header := fmt.Sprintf("**Recent VoiceMaster Activity Logs (%d entries)**\nMost recent entries first. Times are UTC.", len(entries))
	r.reply(ev, truncateLines(header, lines), true)
	return nil
}

func formatEntry(e models.AuditLogEntry) string {
	user, channel, details := "N/A", "N/A", "N/A"
	if e.UserID != nil {
		user = fmt.Sprintf("<@%s>", *e.UserID)
	}
	if e.ChannelID != nil {
		channel = fmt.Sprintf("<#%s>", *e.ChannelID)
	}
	if e.Details != "" {
		details = e.Details
	}
	return fmt.Sprintf("**#%d %s** · %s · %s · %s\n%s",
		e.ID, e.EventType.Title(), user, channel, e.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"), details)
}

// truncateLines joins lines under header, dropping the tail once the reply
// would exceed maxReplyLength.
func truncateLines(header string, lines []string) string {
	var b strings.Builder
	b.WriteString(header)
	for i, line := range lines {
		if b.Len()+len(line)+1 > maxReplyLength {
			fmt.Fprintf(&b, "\n…and %d more", len(lines)-i)
			break
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (r *Router) config(ctx context.Context, ev *gateway.CommandEvent) error {
	guild, err := r.configuredGuild(ctx, ev.GuildID)
	if err != nil {
		return err
	}
	enabled, set := ev.Bool("cleanup")
	if !set {
		r.reply(ev, fmt.Sprintf("Automatic cleanup on startup is **%s**.", onOff(guild.CleanupOnStartup)), true)
		return nil
	}

	old := guild.CleanupOnStartup
	if err := r.guilds.SetCleanupOnStartup(ctx, ev.GuildID, enabled); err != nil {
		return err
	}
	r.record(ctx, service.Event{
		GuildID: ev.GuildID,
		Type:    models.EventCleanupStateChanged,
		UserID:  ev.UserID,
		Details: fmt.Sprintf("Automatic cleanup on startup changed from %t to %t.", old, enabled),
	})
	r.reply(ev, fmt.Sprintf("Automatic cleanup on startup is now **%s**.", onOff(enabled)), true)
	return nil
}

func onOff(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
