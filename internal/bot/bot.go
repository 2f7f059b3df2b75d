package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spamwarden/internal/analytics"
	"spamwarden/internal/antispam"
	"spamwarden/internal/audit"
	"spamwarden/internal/config"
	"spamwarden/internal/executor"
	"spamwarden/internal/metrics"
	"spamwarden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	engine    *antispam.Engine
	executor  *executor.Executor
	audit     *audit.Logger
	analytics *analytics.Service
	metrics   *metrics.Metrics
	session   *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, engine *antispam.Engine, exec *executor.Executor, auditLogger *audit.Logger, analyticsService *analytics.Service, m *metrics.Metrics) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		engine:    engine,
		executor:  exec,
		audit:     auditLogger,
		analytics: analyticsService,
		metrics:   m,
		session:   session,
	}

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.ChannelAlertEnabled {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

// Session is exposed for the executor, which shares the gateway
// connection.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// SetExecutor wires the action executor. The executor needs the bot's
// session, so it is constructed after the bot and attached here,
// before Start.
func (b *Bot) SetExecutor(exec *executor.Executor) {
	b.executor = exec
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	member := b.memberInfo(msg.GuildID, msg.Author.ID, msg.Member)
	if b.outranksBot(msg.GuildID, msg.Member) {
		return
	}

	if b.engine.IsInviteLink(msg.Content, msg.GuildID) && !b.isAdmin(member) {
		if err := session.ChannelMessageDelete(msg.ChannelID, msg.ID); err == nil {
			b.metrics.Detections.WithLabelValues("invite").Inc()
			b.audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.Author.ID, "invite", "invite link removed")
		}
	}

	triggers := b.engine.CheckMessage(msg.GuildID, msg.Author.ID, msg.Content, msg.ChannelID, member)
	if len(triggers) == 0 {
		return
	}

	for _, trigger := range triggers {
		b.metrics.Detections.WithLabelValues(string(trigger.Detection)).Inc()
		b.audit.LogTrigger(ctx, msg.GuildID, msg.Author.ID, trigger)
	}

	worst, _ := antispam.Worst(triggers)
	b.enforce(ctx, msg.GuildID, msg.ChannelID, msg.ID, msg.Author.ID, worst, triggers)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	_ = session
	ctx := context.Background()

	trigger := b.engine.CheckMemberJoin(event.GuildID)
	if trigger == nil {
		return
	}

	b.metrics.Detections.WithLabelValues(string(trigger.Detection)).Inc()
	b.audit.LogTrigger(ctx, event.GuildID, event.User.ID, *trigger)
	b.enforce(ctx, event.GuildID, "", "", event.User.ID, *trigger, []antispam.Trigger{*trigger})
}

// enforce carries out the worst trigger's action. Per-user tracking is
// reset afterwards so the same burst is not punished twice; strikes
// deliberately survive the reset.
func (b *Bot) enforce(ctx context.Context, guildID, channelID, messageID, userID string, worst antispam.Trigger, triggers []antispam.Trigger) {
	if worst.Action == antispam.ActionLockdown {
		b.beginLockdown(ctx, guildID, worst.Detail)
	} else if worst.Action != antispam.ActionWarn || b.cfg.Notifications.DMWarnEnabled {
		settings := b.engine.Settings(guildID)
		result := b.executor.Apply(executor.Request{
			GuildID:       guildID,
			ChannelID:     channelID,
			MessageID:     messageID,
			UserID:        userID,
			Action:        worst.Action,
			Reason:        fmt.Sprintf("%s: %s", worst.Detection, worst.Detail),
			MuteDuration:  time.Duration(settings.MuteDuration) * time.Second,
			BanDeleteDays: settings.BanDeleteDays,
		})
		if result.Err != nil {
			b.metrics.ActionErrors.WithLabelValues(worst.Action.String()).Inc()
			b.audit.Log(ctx, audit.LevelWarn, guildID, userID, "action_failed", result.Err.Error())
		} else {
			b.metrics.Actions.WithLabelValues(worst.Action.String()).Inc()
		}
	}

	strikes := b.engine.UserStrikes(guildID, userID)
	b.engine.ResetUser(guildID, userID)
	b.sendAlert(ctx, guildID, userID, worst, triggers, strikes)
}

func (b *Bot) beginLockdown(ctx context.Context, guildID, reason string) {
	if !b.engine.SetLockdown(guildID, true) {
		return
	}
	locked, err := b.executor.Lockdown(guildID)
	if err != nil {
		b.audit.Log(ctx, audit.LevelWarn, guildID, "", "action_failed", "lockdown: "+err.Error())
	}
	b.metrics.LockdownGauge.WithLabelValues(guildID).Set(1)
	b.metrics.Actions.WithLabelValues(antispam.ActionLockdown.String()).Inc()
	b.audit.Log(ctx, audit.LevelCrit, guildID, "", "lockdown", fmt.Sprintf("%s, %d channels locked", reason, locked))

	if minutes := b.cfg.LockdownAutoLiftMins; minutes > 0 {
		go func() {
			time.Sleep(time.Duration(minutes) * time.Minute)
			b.liftLockdown(context.Background(), guildID, "auto lift")
		}()
	}
}

func (b *Bot) liftLockdown(ctx context.Context, guildID, reason string) {
	if !b.engine.SetLockdown(guildID, false) {
		return
	}
	if err := b.executor.LiftLockdown(guildID); err != nil {
		b.audit.Log(ctx, audit.LevelWarn, guildID, "", "action_failed", "lift lockdown: "+err.Error())
	}
	b.metrics.LockdownGauge.WithLabelValues(guildID).Set(0)
	b.audit.Log(ctx, audit.LevelInfo, guildID, "", "lockdown_lifted", reason)
}

// memberInfo builds the role context the engine needs. Returns nil
// when Discord did not attach member data; the engine evaluates
// normally in that case.
func (b *Bot) memberInfo(guildID, userID string, member *discordgo.Member) *antispam.MemberInfo {
	if member == nil {
		var err error
		member, err = b.session.State.Member(guildID, userID)
		if err != nil || member == nil {
			return nil
		}
	}

	info := &antispam.MemberInfo{RoleIDs: member.Roles}
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return info
	}
	if guild.OwnerID == userID {
		info.Administrator = true
		return info
	}
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil && role.Permissions&discordgo.PermissionAdministrator != 0 {
			info.Administrator = true
			break
		}
	}
	return info
}

// outranksBot reports whether the author's top role sits at or above
// the bot's own, in which case the bot could not act anyway.
func (b *Bot) outranksBot(guildID string, member *discordgo.Member) bool {
	if member == nil || b.session.State == nil || b.session.State.User == nil {
		return false
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return false
	}
	botMember, err := b.session.State.Member(guildID, b.session.State.User.ID)
	if err != nil || botMember == nil {
		return false
	}

	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	top := func(roleIDs []string) int {
		highest := -1
		for _, roleID := range roleIDs {
			if pos, ok := positions[roleID]; ok && pos > highest {
				highest = pos
			}
		}
		return highest
	}
	return top(member.Roles) >= top(botMember.Roles) && top(member.Roles) >= 0
}

func (b *Bot) isAdmin(member *antispam.MemberInfo) bool {
	return member != nil && member.Administrator
}

func (b *Bot) sendAlert(ctx context.Context, guildID, userID string, worst antispam.Trigger, triggers []antispam.Trigger, strikes int) {
	if !b.cfg.Notifications.ChannelAlertEnabled {
		return
	}
	channelID := b.cfg.DefaultLogChannel
	if channelID == "" {
		return
	}
	_ = ctx

	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: "<@" + userID + ">", Inline: true},
		{Name: "Action", Value: worst.Action.String(), Inline: true},
	}
	if strikes > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Strikes", Value: fmt.Sprintf("%d", strikes), Inline: true})
	}
	for _, trigger := range triggers {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   titleCase(string(trigger.Detection)),
			Value:  trigger.Detail,
			Inline: false,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Anti-spam enforcement",
		Description: "Automatic action taken.",
		Color:       b.cfg.Notifications.EmbedColors.Action,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
	_, _ = b.session.ChannelMessageSendEmbed(channelID, embed)
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	_ = ctx
	channelID := b.cfg.DefaultLogChannel
	if channelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:     "Audit",
		Color:     b.cfg.Notifications.EmbedColors.Warning,
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Event", Value: entry.Event, Inline: true},
			{Name: "Level", Value: entry.Level, Inline: true},
			{Name: "User", Value: userMention(entry.UserID), Inline: true},
			{Name: "Details", Value: orDash(entry.Details), Inline: false},
		},
	}
	_, _ = b.session.ChannelMessageSendEmbed(channelID, embed)
}

func userMention(userID string) string {
	if userID == "" {
		return "system"
	}
	return "<@" + userID + ">"
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
