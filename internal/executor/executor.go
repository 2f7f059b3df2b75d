package executor

import (
	"fmt"
	"sync"
	"time"

	"spamwarden/internal/antispam"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	purgeFetchLimit = 50
	purgeMaxAge     = 10 * time.Minute
)

// Executor carries out engine decisions against Discord. Every call is
// best effort: a missing permission or an already-gone message must
// never take the bot down, so failures are logged and reported in the
// Result instead of propagating.
type Executor struct {
	session *discordgo.Session
	logger  *zap.Logger

	lockdownMu  sync.Mutex
	lockdownMap map[string]*lockdownSnapshot
}

type lockdownSnapshot struct {
	channels map[string]channelSnapshot
}

type channelSnapshot struct {
	allow   int64
	deny    int64
	hasPerm bool
}

// Request identifies the offender and the message context the
// detection came from. MessageID may be empty for join events.
type Request struct {
	GuildID       string
	ChannelID     string
	MessageID     string
	UserID        string
	Action        antispam.Action
	Reason        string
	MuteDuration  time.Duration
	BanDeleteDays int
}

type Result struct {
	Action antispam.Action
	Purged int
	Err    error
}

func New(session *discordgo.Session, logger *zap.Logger) *Executor {
	return &Executor{
		session:     session,
		logger:      logger,
		lockdownMap: make(map[string]*lockdownSnapshot),
	}
}

// Apply executes one action. Lockdown is guild-scoped and handled by
// Lockdown/LiftLockdown, not here.
func (e *Executor) Apply(req Request) Result {
	result := Result{Action: req.Action}

	switch req.Action {
	case antispam.ActionWarn:
		result.Err = e.warn(req)
	case antispam.ActionDelete:
		result.Purged, result.Err = e.deleteAndPurge(req)
	case antispam.ActionMute:
		result.Purged, result.Err = e.mute(req)
	case antispam.ActionKick:
		result.Purged, result.Err = e.kick(req)
	case antispam.ActionBan:
		result.Err = e.ban(req)
	default:
		result.Err = fmt.Errorf("action %s is not message-scoped", req.Action)
	}

	if result.Err != nil {
		e.logger.Warn("action failed",
			zap.String("guild_id", req.GuildID),
			zap.String("user_id", req.UserID),
			zap.String("action", req.Action.String()),
			zap.Error(result.Err))
	}
	return result
}

func (e *Executor) warn(req Request) error {
	channel, err := e.session.UserChannelCreate(req.UserID)
	if err != nil {
		return fmt.Errorf("open dm: %w", err)
	}
	content := "You triggered the server's anti-spam protection. Please slow down."
	if req.Reason != "" {
		content += "\nReason: " + req.Reason
	}
	_, err = e.session.ChannelMessageSend(channel.ID, content)
	return err
}

func (e *Executor) deleteAndPurge(req Request) (int, error) {
	if req.MessageID != "" {
		if err := e.session.ChannelMessageDelete(req.ChannelID, req.MessageID); err != nil {
			e.logger.Debug("offending message already gone", zap.String("message_id", req.MessageID), zap.Error(err))
		}
	}
	return e.purgeRecent(req.ChannelID, req.UserID, req.MessageID)
}

func (e *Executor) mute(req Request) (int, error) {
	duration := req.MuteDuration
	if duration <= 0 {
		duration = time.Hour
	}
	until := time.Now().Add(duration)
	if err := e.session.GuildMemberTimeout(req.GuildID, req.UserID, &until); err != nil {
		return 0, fmt.Errorf("timeout: %w", err)
	}
	purged, _ := e.purgeRecent(req.ChannelID, req.UserID, req.MessageID)
	return purged, nil
}

func (e *Executor) kick(req Request) (int, error) {
	// purge first, the member's messages are unreachable after the kick
	purged, _ := e.purgeRecent(req.ChannelID, req.UserID, req.MessageID)
	if err := e.session.GuildMemberDeleteWithReason(req.GuildID, req.UserID, req.Reason); err != nil {
		return purged, fmt.Errorf("kick: %w", err)
	}
	return purged, nil
}

func (e *Executor) ban(req Request) error {
	days := req.BanDeleteDays
	if days < 0 {
		days = 0
	}
	if err := e.session.GuildBanCreateWithReason(req.GuildID, req.UserID, req.Reason, days); err != nil {
		return fmt.Errorf("ban: %w", err)
	}
	return nil
}

// purgeRecent removes the user's latest messages from the channel.
// Bulk delete rejects messages older than two weeks, so anything not
// recent is skipped up front and failures fall back to single deletes.
func (e *Executor) purgeRecent(channelID, userID, skipID string) (int, error) {
	if channelID == "" {
		return 0, nil
	}
	messages, err := e.session.ChannelMessages(channelID, purgeFetchLimit, "", "", "")
	if err != nil {
		return 0, fmt.Errorf("list messages: %w", err)
	}

	cutoff := time.Now().Add(-purgeMaxAge)
	var ids []string
	for _, message := range messages {
		if message == nil || message.Author == nil || message.Author.ID != userID {
			continue
		}
		if message.ID == skipID {
			continue
		}
		if message.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, message.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := e.session.ChannelMessagesBulkDelete(channelID, ids); err == nil {
		return len(ids), nil
	}
	deleted := 0
	for _, id := range ids {
		if err := e.session.ChannelMessageDelete(channelID, id); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Lockdown denies send_messages for @everyone on every text channel,
// remembering the previous overwrites so LiftLockdown can restore
// them. Returns the number of channels locked. Calling it twice is a
// no-op.
func (e *Executor) Lockdown(guildID string) (int, error) {
	e.lockdownMu.Lock()
	if _, exists := e.lockdownMap[guildID]; exists {
		e.lockdownMu.Unlock()
		return 0, nil
	}
	e.lockdownMu.Unlock()

	channels, err := e.session.GuildChannels(guildID)
	if err != nil {
		return 0, fmt.Errorf("list channels: %w", err)
	}

	snapshot := &lockdownSnapshot{channels: make(map[string]channelSnapshot)}
	locked := 0
	for _, channel := range channels {
		if channel == nil {
			continue
		}
		if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
			continue
		}
		snap := channelSnapshot{}
		for _, overwrite := range channel.PermissionOverwrites {
			if overwrite.Type == discordgo.PermissionOverwriteTypeRole && overwrite.ID == guildID {
				snap.allow = overwrite.Allow
				snap.deny = overwrite.Deny
				snap.hasPerm = true
				break
			}
		}
		snapshot.channels[channel.ID] = snap

		deny := snap.deny | discordgo.PermissionSendMessages
		if err := e.session.ChannelPermissionSet(channel.ID, guildID, discordgo.PermissionOverwriteTypeRole, snap.allow, deny); err != nil {
			e.logger.Warn("lockdown skipped channel", zap.String("channel_id", channel.ID), zap.Error(err))
			continue
		}
		locked++
	}

	e.lockdownMu.Lock()
	e.lockdownMap[guildID] = snapshot
	e.lockdownMu.Unlock()
	return locked, nil
}

// LiftLockdown restores the overwrites captured by Lockdown. Without a
// snapshot (process restarted mid-lockdown) it clears the deny bit
// instead, which loses nothing the snapshot would have had.
func (e *Executor) LiftLockdown(guildID string) error {
	e.lockdownMu.Lock()
	snapshot := e.lockdownMap[guildID]
	delete(e.lockdownMap, guildID)
	e.lockdownMu.Unlock()

	if snapshot == nil {
		channels, err := e.session.GuildChannels(guildID)
		if err != nil {
			return fmt.Errorf("list channels: %w", err)
		}
		for _, channel := range channels {
			if channel == nil {
				continue
			}
			if channel.Type != discordgo.ChannelTypeGuildText && channel.Type != discordgo.ChannelTypeGuildNews {
				continue
			}
			for _, overwrite := range channel.PermissionOverwrites {
				if overwrite.Type == discordgo.PermissionOverwriteTypeRole && overwrite.ID == guildID {
					deny := overwrite.Deny &^ discordgo.PermissionSendMessages
					_ = e.session.ChannelPermissionSet(channel.ID, guildID, discordgo.PermissionOverwriteTypeRole, overwrite.Allow, deny)
					break
				}
			}
		}
		return nil
	}

	for channelID, snap := range snapshot.channels {
		if snap.hasPerm {
			_ = e.session.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, snap.allow, snap.deny)
		} else {
			_ = e.session.ChannelPermissionDelete(channelID, guildID)
		}
	}
	return nil
}
