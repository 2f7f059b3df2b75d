package audit

import (
	"context"
	"fmt"
	"time"

	"spamwarden/internal/antispam"
	"spamwarden/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// SetNotifier installs the hook that mirrors entries to the guild's
// log channel. Set once during startup, before any events flow.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		_ = l.store.AddAuditLog(ctx, entry)
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}
	l.logger.Info("audit", zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details))
}

// LogTrigger records one rule violation and the action taken for it.
func (l *Logger) LogTrigger(ctx context.Context, guildID, userID string, trigger antispam.Trigger) {
	l.Log(ctx, levelFor(trigger.Action), guildID, userID, string(trigger.Detection),
		fmt.Sprintf("%s (%s)", trigger.Detail, trigger.Action))
}

func levelFor(action antispam.Action) string {
	switch {
	case action >= antispam.ActionBan:
		return LevelCrit
	case action >= antispam.ActionMute:
		return LevelWarn
	default:
		return LevelInfo
	}
}
