package antispam

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"spamwarden/internal/utils"

	"go.uber.org/zap"
)

// SettingsStore persists guild settings documents. Read failure
// degrades to defaults for every guild; write failure is logged and
// the in-memory settings stay authoritative for the process.
type SettingsStore interface {
	LoadAll(ctx context.Context) (map[string]*GuildSettings, error)
	Save(ctx context.Context, guildID string, settings *GuildSettings) error
}

// MemberInfo is the role/permission context of a message author. A
// nil MemberInfo means the context was unavailable; evaluation then
// proceeds without the whitelist role check (matching the original
// fail-open behavior, see DESIGN.md).
type MemberInfo struct {
	RoleIDs       []string
	Administrator bool
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Engine evaluates messages and joins against per-guild rules, keeps
// the rolling windowed logs behind them, escalates repeat offenders,
// and tracks guild lockdown state. All log state is in-memory and
// scoped to the process; only settings persist.
type Engine struct {
	mu       sync.Mutex
	store    SettingsStore
	logger   *zap.Logger
	clock    Clock
	settings map[string]*GuildSettings

	floodLog   map[string]*utils.Window       // guild:user, message arrivals
	contentLog map[string]*utils.TaggedWindow // guild:user, normalized content
	linkLog    map[string]*utils.Window       // guild:user, one entry per URL
	joinLog    map[string]*utils.Window       // guild, member joins
	strikeLog  map[string]*utils.TaggedWindow // guild:user, detection types

	lockdown map[string]bool
}

func New(ctx context.Context, store SettingsStore, logger *zap.Logger) *Engine {
	engine := &Engine{
		store:      store,
		logger:     logger,
		clock:      realClock{},
		settings:   make(map[string]*GuildSettings),
		floodLog:   make(map[string]*utils.Window),
		contentLog: make(map[string]*utils.TaggedWindow),
		linkLog:    make(map[string]*utils.Window),
		joinLog:    make(map[string]*utils.Window),
		strikeLog:  make(map[string]*utils.TaggedWindow),
		lockdown:   make(map[string]bool),
	}

	if store != nil {
		loaded, err := store.LoadAll(ctx)
		if err != nil {
			logger.Warn("settings load failed, starting from defaults", zap.Error(err))
		} else {
			engine.settings = loaded
		}
	}
	if engine.settings == nil {
		engine.settings = make(map[string]*GuildSettings)
	}
	return engine
}

func (e *Engine) WithClock(clock Clock) {
	e.clock = clock
}

// Settings returns a copy of the guild's settings, creating defaults
// on first access.
func (e *Engine) Settings(guildID string) GuildSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settingsLocked(guildID).clone()
}

func (e *Engine) settingsLocked(guildID string) *GuildSettings {
	s := e.settings[guildID]
	if s == nil {
		s = DefaultSettings()
		e.settings[guildID] = s
	}
	return s
}

// UpdateSettings merges a partial patch into the guild's settings and
// persists the result.
func (e *Engine) UpdateSettings(ctx context.Context, guildID string, patch SettingsPatch) GuildSettings {
	e.mu.Lock()
	s := e.settingsLocked(guildID)
	patch.apply(s)
	out := s.clone()
	e.mu.Unlock()

	e.persist(ctx, guildID, &out)
	return out
}

// AddWhitelistRole exempts a role from message-rule evaluation.
// Duplicate adds are no-ops.
func (e *Engine) AddWhitelistRole(ctx context.Context, guildID, roleID string) bool {
	return e.mutateWhitelist(ctx, guildID, func(s *GuildSettings) bool {
		if containsID(s.WhitelistedRoles, roleID) {
			return false
		}
		s.WhitelistedRoles = append(s.WhitelistedRoles, roleID)
		return true
	})
}

// RemoveWhitelistRole removes a role exemption. Missing entries are
// no-ops.
func (e *Engine) RemoveWhitelistRole(ctx context.Context, guildID, roleID string) bool {
	return e.mutateWhitelist(ctx, guildID, func(s *GuildSettings) bool {
		if !containsID(s.WhitelistedRoles, roleID) {
			return false
		}
		s.WhitelistedRoles = removeID(s.WhitelistedRoles, roleID)
		return true
	})
}

// AddWhitelistChannel exempts a channel from message-rule evaluation.
func (e *Engine) AddWhitelistChannel(ctx context.Context, guildID, channelID string) bool {
	return e.mutateWhitelist(ctx, guildID, func(s *GuildSettings) bool {
		if containsID(s.WhitelistedChannels, channelID) {
			return false
		}
		s.WhitelistedChannels = append(s.WhitelistedChannels, channelID)
		return true
	})
}

// RemoveWhitelistChannel removes a channel exemption.
func (e *Engine) RemoveWhitelistChannel(ctx context.Context, guildID, channelID string) bool {
	return e.mutateWhitelist(ctx, guildID, func(s *GuildSettings) bool {
		if !containsID(s.WhitelistedChannels, channelID) {
			return false
		}
		s.WhitelistedChannels = removeID(s.WhitelistedChannels, channelID)
		return true
	})
}

func (e *Engine) mutateWhitelist(ctx context.Context, guildID string, mutate func(*GuildSettings) bool) bool {
	e.mu.Lock()
	s := e.settingsLocked(guildID)
	changed := mutate(s)
	out := s.clone()
	e.mu.Unlock()

	if changed {
		e.persist(ctx, guildID, &out)
	}
	return changed
}

func (e *Engine) persist(ctx context.Context, guildID string, settings *GuildSettings) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, guildID, settings); err != nil {
		e.logger.Warn("settings persist failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// CheckMessage runs every message rule in fixed order (flood,
// duplicate, mention, link, emoji, newline) and returns all triggers,
// escalated when the guild's strike policy says so. The caller
// executes only the worst trigger.
func (e *Engine) CheckMessage(guildID, userID, content, channelID string, member *MemberInfo) []Trigger {
	s := e.Settings(guildID)
	if !s.Enabled {
		return nil
	}
	if member != nil && member.Administrator {
		return nil
	}
	if e.whitelisted(&s, channelID, member) {
		return nil
	}

	now := e.clock.Now()
	var triggers []Trigger

	if trigger := e.checkFlood(&s, guildID, userID, now); trigger != nil {
		triggers = append(triggers, *trigger)
	}
	if trigger := e.checkDuplicate(&s, guildID, userID, content, now); trigger != nil {
		triggers = append(triggers, *trigger)
	}
	if trigger := checkMention(&s, content); trigger != nil {
		triggers = append(triggers, *trigger)
	}
	if trigger := e.checkLinks(&s, guildID, userID, content, now); trigger != nil {
		triggers = append(triggers, *trigger)
	}
	if trigger := checkEmoji(&s, content); trigger != nil {
		triggers = append(triggers, *trigger)
	}
	if trigger := checkNewline(&s, content); trigger != nil {
		triggers = append(triggers, *trigger)
	}

	if len(triggers) > 0 && s.AutoEscalate {
		triggers = e.escalate(&s, guildID, userID, now, triggers)
	}
	return triggers
}

// CheckMemberJoin feeds the guild's join log and reports a raid
// trigger once the burst threshold is reached. The log is cleared on
// trigger so one burst fires exactly once.
func (e *Engine) CheckMemberJoin(guildID string) *Trigger {
	s := e.Settings(guildID)
	if !s.Enabled || !s.RaidEnabled {
		return nil
	}

	now := e.clock.Now()
	window := e.joinWindow(guildID)
	count := window.Add(now, seconds(s.RaidWindow))
	if count < s.RaidJoins {
		return nil
	}

	window.Clear()
	return &Trigger{
		Detection: DetectRaid,
		Action:    s.RaidAction,
		Detail:    fmt.Sprintf("%d/%d joins within %ds", count, s.RaidJoins, s.RaidWindow),
	}
}

// IsInviteLink reports whether content carries an invite URL that the
// guild wants deleted on sight, independent of the link rate rule.
func (e *Engine) IsInviteLink(content, guildID string) bool {
	s := e.Settings(guildID)
	if !s.Enabled || !s.InviteAutoDelete {
		return false
	}
	return utils.HasInviteLink(content)
}

// IsLockdown reports whether the guild is currently locked down.
func (e *Engine) IsLockdown(guildID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lockdown[guildID]
}

// SetLockdown records the lockdown flag and reports whether the state
// actually changed, so a second activation is a no-op for the caller.
func (e *Engine) SetLockdown(guildID string, locked bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lockdown[guildID] == locked {
		return false
	}
	e.lockdown[guildID] = locked
	return true
}

// ResetUser clears the user's flood, duplicate, and link logs.
// Strikes survive so escalation keeps working across resets.
func (e *Engine) ResetUser(guildID, userID string) {
	key := guildID + ":" + userID
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.floodLog, key)
	delete(e.contentLog, key)
	delete(e.linkLog, key)
}

// UserStrikes returns the user's violation count inside the guild's
// escalation window.
func (e *Engine) UserStrikes(guildID, userID string) int {
	s := e.Settings(guildID)
	now := e.clock.Now()
	return e.strikeWindow(guildID, userID).Count(now, seconds(s.EscalateWindow))
}

func (e *Engine) checkFlood(s *GuildSettings, guildID, userID string, now time.Time) *Trigger {
	count := e.floodWindow(guildID, userID).Add(now, seconds(s.FloodWindow))
	if count <= s.FloodMessages {
		return nil
	}
	return &Trigger{
		Detection: DetectFlood,
		Action:    s.FloodAction,
		Detail:    fmt.Sprintf("%d/%d messages within %ds", count, s.FloodMessages, s.FloodWindow),
	}
}

func (e *Engine) checkDuplicate(s *GuildSettings, guildID, userID, content string, now time.Time) *Trigger {
	if !s.DuplicateEnabled {
		return nil
	}
	normalized := utils.NormalizeContent(content)
	if normalized == "" {
		return nil
	}
	span := seconds(s.DuplicateWindow)
	window := e.contentWindow(guildID, userID)
	window.Add(now, span, normalized)
	count := window.CountTag(now, span, normalized)
	if count < s.DuplicateCount {
		return nil
	}
	return &Trigger{
		Detection: DetectDuplicate,
		Action:    s.DuplicateAction,
		Detail:    fmt.Sprintf("same content %d/%d times within %ds", count, s.DuplicateCount, s.DuplicateWindow),
	}
}

func checkMention(s *GuildSettings, content string) *Trigger {
	if !s.MentionEnabled {
		return nil
	}
	count := utils.MentionCount(content)
	if count < s.MentionLimit {
		return nil
	}
	return &Trigger{
		Detection: DetectMention,
		Action:    s.MentionAction,
		Detail:    fmt.Sprintf("%d/%d mentions in one message", count, s.MentionLimit),
	}
}

func (e *Engine) checkLinks(s *GuildSettings, guildID, userID, content string, now time.Time) *Trigger {
	if !s.LinkEnabled {
		return nil
	}
	urls := utils.ExtractURLs(content)
	if len(urls) == 0 {
		return nil
	}

	span := seconds(s.LinkWindow)
	window := e.linkWindow(guildID, userID)
	count := 0
	for range urls {
		count = window.Add(now, span)
	}
	if count < s.LinkLimit {
		return nil
	}

	detail := fmt.Sprintf("%d/%d links within %ds", count, s.LinkLimit, s.LinkWindow)
	if host, err := utils.NormalizeHost(urls[len(urls)-1]); err == nil && host != "" {
		detail += " host=" + host
	}
	if utils.HasInviteLink(content) {
		detail += " (invite link present)"
	}
	return &Trigger{Detection: DetectLink, Action: s.LinkAction, Detail: detail}
}

func checkEmoji(s *GuildSettings, content string) *Trigger {
	if !s.EmojiEnabled {
		return nil
	}
	count := utils.EmojiCount(content)
	if count < s.EmojiLimit {
		return nil
	}
	return &Trigger{
		Detection: DetectEmoji,
		Action:    s.EmojiAction,
		Detail:    fmt.Sprintf("%d/%d emoji in one message", count, s.EmojiLimit),
	}
}

func checkNewline(s *GuildSettings, content string) *Trigger {
	if !s.NewlineEnabled {
		return nil
	}
	count := strings.Count(content, "\n")
	if count < s.NewlineLimit {
		return nil
	}
	return &Trigger{
		Detection: DetectNewline,
		Action:    s.NewlineAction,
		Detail:    fmt.Sprintf("%d/%d newlines in one message", count, s.NewlineLimit),
	}
}

// escalate records every current detection as a strike and, once the
// strike threshold is reached, bumps all triggered actions to the
// action one tier above the worst of them. Escalation never selects
// lockdown.
func (e *Engine) escalate(s *GuildSettings, guildID, userID string, now time.Time, triggers []Trigger) []Trigger {
	span := seconds(s.EscalateWindow)
	window := e.strikeWindow(guildID, userID)
	count := 0
	for _, trigger := range triggers {
		count = window.Add(now, span, string(trigger.Detection))
	}
	if count < s.EscalateStrikes {
		return triggers
	}

	worst, _ := Worst(triggers)
	next, ok := worst.Action.Escalate()
	if !ok {
		return triggers
	}
	for i := range triggers {
		triggers[i].Action = next
		triggers[i].Detail += fmt.Sprintf(" (escalated after %d strikes)", count)
	}
	return triggers
}

func (e *Engine) whitelisted(s *GuildSettings, channelID string, member *MemberInfo) bool {
	if containsID(s.WhitelistedChannels, channelID) {
		return true
	}
	if member == nil {
		return false
	}
	for _, roleID := range member.RoleIDs {
		if containsID(s.WhitelistedRoles, roleID) {
			return true
		}
	}
	return false
}

func (e *Engine) floodWindow(guildID, userID string) *utils.Window {
	key := guildID + ":" + userID
	e.mu.Lock()
	defer e.mu.Unlock()
	window := e.floodLog[key]
	if window == nil {
		window = utils.NewWindow()
		e.floodLog[key] = window
	}
	return window
}

func (e *Engine) contentWindow(guildID, userID string) *utils.TaggedWindow {
	key := guildID + ":" + userID
	e.mu.Lock()
	defer e.mu.Unlock()
	window := e.contentLog[key]
	if window == nil {
		window = utils.NewTaggedWindow()
		e.contentLog[key] = window
	}
	return window
}

func (e *Engine) linkWindow(guildID, userID string) *utils.Window {
	key := guildID + ":" + userID
	e.mu.Lock()
	defer e.mu.Unlock()
	window := e.linkLog[key]
	if window == nil {
		window = utils.NewWindow()
		e.linkLog[key] = window
	}
	return window
}

func (e *Engine) joinWindow(guildID string) *utils.Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	window := e.joinLog[guildID]
	if window == nil {
		window = utils.NewWindow()
		e.joinLog[guildID] = window
	}
	return window
}

func (e *Engine) strikeWindow(guildID, userID string) *utils.TaggedWindow {
	key := guildID + ":" + userID
	e.mu.Lock()
	defer e.mu.Unlock()
	window := e.strikeLog[key]
	if window == nil {
		window = utils.NewTaggedWindow()
		e.strikeLog[key] = window
	}
	return window
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func containsID(ids []string, id string) bool {
	for _, known := range ids {
		if known == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, known := range ids {
		if known != id {
			out = append(out, known)
		}
	}
	return out
}
