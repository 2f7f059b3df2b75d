package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spamwarden/internal/antispam"
	"spamwarden/internal/audit"

	"github.com/bwmarrin/discordgo"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func mapOptions(options []*discordgo.ApplicationCommandInteractionDataOption) optionMap {
	m := make(optionMap, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (m optionMap) intValue(name string) *int {
	if opt, ok := m[name]; ok {
		value := int(opt.IntValue())
		return &value
	}
	return nil
}

func (m optionMap) boolValue(name string) *bool {
	if opt, ok := m[name]; ok {
		value := opt.BoolValue()
		return &value
	}
	return nil
}

func (m optionMap) stringValue(name string) string {
	if opt, ok := m[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (m optionMap) actionValue(name string) *antispam.Action {
	raw := m.stringValue(name)
	if raw == "" {
		return nil
	}
	action, err := antispam.ParseAction(raw)
	if err != nil {
		return nil
	}
	return &action
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Anti-spam", "This command only works in a server.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	options := mapOptions(data.Options)
	switch data.Name {
	case "status":
		b.handleStatus(session, interaction)
	case "protection":
		b.handleProtection(ctx, session, interaction, options)
	case "flood":
		b.handleRule(ctx, session, interaction, "Flood", antispam.SettingsPatch{
			FloodMessages: options.intValue("messages"),
			FloodWindow:   options.intValue("window"),
			FloodAction:   options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%d messages / %ds, action %s", s.FloodMessages, s.FloodWindow, s.FloodAction)
		})
	case "duplicate":
		b.handleRule(ctx, session, interaction, "Duplicate", antispam.SettingsPatch{
			DuplicateEnabled: options.boolValue("enabled"),
			DuplicateCount:   options.intValue("count"),
			DuplicateWindow:  options.intValue("window"),
			DuplicateAction:  options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, %d identical / %ds, action %s", onOff(s.DuplicateEnabled), s.DuplicateCount, s.DuplicateWindow, s.DuplicateAction)
		})
	case "mention":
		b.handleRule(ctx, session, interaction, "Mention", antispam.SettingsPatch{
			MentionEnabled: options.boolValue("enabled"),
			MentionLimit:   options.intValue("limit"),
			MentionAction:  options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, limit %d per message, action %s", onOff(s.MentionEnabled), s.MentionLimit, s.MentionAction)
		})
	case "link":
		b.handleRule(ctx, session, interaction, "Link", antispam.SettingsPatch{
			LinkEnabled:      options.boolValue("enabled"),
			LinkLimit:        options.intValue("limit"),
			LinkWindow:       options.intValue("window"),
			LinkAction:       options.actionValue("action"),
			InviteAutoDelete: options.boolValue("invite_auto_delete"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, %d links / %ds, action %s, invite auto-delete %s",
				onOff(s.LinkEnabled), s.LinkLimit, s.LinkWindow, s.LinkAction, onOff(s.InviteAutoDelete))
		})
	case "emoji":
		b.handleRule(ctx, session, interaction, "Emoji", antispam.SettingsPatch{
			EmojiEnabled: options.boolValue("enabled"),
			EmojiLimit:   options.intValue("limit"),
			EmojiAction:  options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, limit %d per message, action %s", onOff(s.EmojiEnabled), s.EmojiLimit, s.EmojiAction)
		})
	case "newline":
		b.handleRule(ctx, session, interaction, "Newline", antispam.SettingsPatch{
			NewlineEnabled: options.boolValue("enabled"),
			NewlineLimit:   options.intValue("limit"),
			NewlineAction:  options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, limit %d per message, action %s", onOff(s.NewlineEnabled), s.NewlineLimit, s.NewlineAction)
		})
	case "raid":
		b.handleRule(ctx, session, interaction, "Raid", antispam.SettingsPatch{
			RaidEnabled: options.boolValue("enabled"),
			RaidJoins:   options.intValue("joins"),
			RaidWindow:  options.intValue("window"),
			RaidAction:  options.actionValue("action"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, %d joins / %ds, action %s", onOff(s.RaidEnabled), s.RaidJoins, s.RaidWindow, s.RaidAction)
		})
	case "escalation":
		b.handleRule(ctx, session, interaction, "Escalation", antispam.SettingsPatch{
			AutoEscalate:    options.boolValue("enabled"),
			EscalateStrikes: options.intValue("strikes"),
			EscalateWindow:  options.intValue("window"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("%s, %d strikes / %ds", onOff(s.AutoEscalate), s.EscalateStrikes, s.EscalateWindow)
		})
	case "punish":
		b.handleRule(ctx, session, interaction, "Punishments", antispam.SettingsPatch{
			MuteDuration:  options.intValue("mute_seconds"),
			BanDeleteDays: options.intValue("ban_delete_days"),
		}, func(s antispam.GuildSettings) string {
			return fmt.Sprintf("mute %ds, ban deletes %d day(s) of messages", s.MuteDuration, s.BanDeleteDays)
		})
	case "whitelist":
		b.handleWhitelist(ctx, session, interaction, data.Options)
	case "lockdown":
		b.handleLockdown(ctx, session, interaction, options)
	case "reset":
		b.handleReset(ctx, session, interaction, data.Options)
	case "strikes":
		b.handleStrikes(session, interaction, data.Options)
	case "report":
		b.handleReport(ctx, session, interaction, options)
	default:
		b.respondEmbed(session, interaction, b.commandEmbed("Anti-spam", "Unknown command.", b.cfg.Notifications.EmbedColors.Error, nil), true)
	}
}

func (b *Bot) handleStatus(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	settings := b.engine.Settings(interaction.GuildID)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Protection", Value: onOff(settings.Enabled), Inline: true},
		{Name: "Lockdown", Value: onOff(b.engine.IsLockdown(interaction.GuildID)), Inline: true},
		{Name: "Flood", Value: fmt.Sprintf("%d/%ds -> %s", settings.FloodMessages, settings.FloodWindow, settings.FloodAction), Inline: true},
		{Name: "Duplicate", Value: fmt.Sprintf("%d/%ds -> %s (%s)", settings.DuplicateCount, settings.DuplicateWindow, settings.DuplicateAction, onOff(settings.DuplicateEnabled)), Inline: true},
		{Name: "Mention", Value: fmt.Sprintf("%d -> %s (%s)", settings.MentionLimit, settings.MentionAction, onOff(settings.MentionEnabled)), Inline: true},
		{Name: "Link", Value: fmt.Sprintf("%d/%ds -> %s (%s)", settings.LinkLimit, settings.LinkWindow, settings.LinkAction, onOff(settings.LinkEnabled)), Inline: true},
		{Name: "Emoji", Value: fmt.Sprintf("%d -> %s (%s)", settings.EmojiLimit, settings.EmojiAction, onOff(settings.EmojiEnabled)), Inline: true},
		{Name: "Newline", Value: fmt.Sprintf("%d -> %s (%s)", settings.NewlineLimit, settings.NewlineAction, onOff(settings.NewlineEnabled)), Inline: true},
		{Name: "Raid", Value: fmt.Sprintf("%d/%ds -> %s (%s)", settings.RaidJoins, settings.RaidWindow, settings.RaidAction, onOff(settings.RaidEnabled)), Inline: true},
		{Name: "Escalation", Value: fmt.Sprintf("%d strikes/%ds (%s)", settings.EscalateStrikes, settings.EscalateWindow, onOff(settings.AutoEscalate)), Inline: true},
		{Name: "Mute", Value: fmt.Sprintf("%ds", settings.MuteDuration), Inline: true},
		{Name: "Invite auto-delete", Value: onOff(settings.InviteAutoDelete), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Anti-spam status", "Current configuration.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleProtection(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optionMap) {
	enabled := options.stringValue("value") == "on"
	b.engine.UpdateSettings(ctx, interaction.GuildID, antispam.SettingsPatch{Enabled: &enabled})
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, commandUser(interaction), "protection", "set to "+onOff(enabled))
	b.respondEmbed(session, interaction, b.commandEmbed("Anti-spam", "Protection is now "+onOff(enabled)+".", b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleRule(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, title string, patch antispam.SettingsPatch, summarize func(antispam.GuildSettings) string) {
	var settings antispam.GuildSettings
	if patch == (antispam.SettingsPatch{}) {
		settings = b.engine.Settings(interaction.GuildID)
		b.respondEmbed(session, interaction, b.commandEmbed(title, summarize(settings), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}

	settings = b.engine.UpdateSettings(ctx, interaction.GuildID, patch)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, commandUser(interaction), "settings", title+" updated")
	b.respondEmbed(session, interaction, b.commandEmbed(title, "Updated: "+summarize(settings), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleWhitelist(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var action, roleID, channelID string
	for _, opt := range options {
		switch opt.Name {
		case "action":
			action = opt.StringValue()
		case "role":
			if role := opt.RoleValue(session, interaction.GuildID); role != nil {
				roleID = role.ID
			}
		case "channel":
			if channel := opt.ChannelValue(session); channel != nil {
				channelID = channel.ID
			}
		}
	}

	if action == "list" {
		settings := b.engine.Settings(interaction.GuildID)
		fields := []*discordgo.MessageEmbedField{
			{Name: "Roles", Value: mentionList(settings.WhitelistedRoles, "<@&"), Inline: false},
			{Name: "Channels", Value: mentionList(settings.WhitelistedChannels, "<#"), Inline: false},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Exempt from all detection rules.", b.cfg.Notifications.EmbedColors.Action, fields), true)
		return
	}

	if roleID == "" && channelID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Provide a role or a channel.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	changed := false
	target := ""
	switch {
	case roleID != "" && action == "add":
		changed = b.engine.AddWhitelistRole(ctx, interaction.GuildID, roleID)
		target = "<@&" + roleID + ">"
	case roleID != "" && action == "remove":
		changed = b.engine.RemoveWhitelistRole(ctx, interaction.GuildID, roleID)
		target = "<@&" + roleID + ">"
	case channelID != "" && action == "add":
		changed = b.engine.AddWhitelistChannel(ctx, interaction.GuildID, channelID)
		target = "<#" + channelID + ">"
	case channelID != "" && action == "remove":
		changed = b.engine.RemoveWhitelistChannel(ctx, interaction.GuildID, channelID)
		target = "<#" + channelID + ">"
	}

	if !changed {
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "No change: "+target+" was already in that state.", b.cfg.Notifications.EmbedColors.Warning, nil), true)
		return
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, commandUser(interaction), "whitelist", action+" "+target)
	b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Whitelist updated: "+action+" "+target, b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleLockdown(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optionMap) {
	value := options.stringValue("value")
	if value == "on" {
		if b.engine.IsLockdown(interaction.GuildID) {
			b.respondEmbed(session, interaction, b.commandEmbed("Lockdown", "Lockdown is already active.", b.cfg.Notifications.EmbedColors.Warning, nil), true)
			return
		}
		b.beginLockdown(ctx, interaction.GuildID, "manual lockdown by <@"+commandUser(interaction)+">")
		b.respondEmbed(session, interaction, b.commandEmbed("Lockdown", "Lockdown enabled.", b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}
	if !b.engine.IsLockdown(interaction.GuildID) {
		b.respondEmbed(session, interaction, b.commandEmbed("Lockdown", "Lockdown is not active.", b.cfg.Notifications.EmbedColors.Warning, nil), true)
		return
	}
	b.liftLockdown(ctx, interaction.GuildID, "manual lift by <@"+commandUser(interaction)+">")
	b.respondEmbed(session, interaction, b.commandEmbed("Lockdown", "Lockdown lifted.", b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleReset(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := ""
	for _, opt := range options {
		if opt.Name == "user" && opt.Type == discordgo.ApplicationCommandOptionUser {
			if user := opt.UserValue(session); user != nil {
				userID = user.ID
			}
		}
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Reset", "User is required.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	b.engine.ResetUser(interaction.GuildID, userID)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, "reset", "tracking cleared by <@"+commandUser(interaction)+">")
	b.respondEmbed(session, interaction, b.commandEmbed("Reset", "Tracking cleared for <@"+userID+">.", b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleStrikes(session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := ""
	for _, opt := range options {
		if opt.Name == "user" && opt.Type == discordgo.ApplicationCommandOptionUser {
			if user := opt.UserValue(session); user != nil {
				userID = user.ID
			}
		}
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Strikes", "User is required.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	strikes := b.engine.UserStrikes(interaction.GuildID, userID)
	b.respondEmbed(session, interaction, b.commandEmbed("Strikes", fmt.Sprintf("<@%s> has %d strike(s) in the current window.", userID, strikes), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleReport(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options optionMap) {
	window := 24 * time.Hour
	if options.stringValue("period") == "week" {
		window = 7 * 24 * time.Hour
	}

	report, err := b.analytics.Report(ctx, interaction.GuildID, window)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Report", "Report unavailable.", b.cfg.Notifications.EmbedColors.Error, nil), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Total", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Info", Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelInfo]), Inline: true},
		{Name: "Warn", Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelWarn]), Inline: true},
		{Name: "Crit", Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelCrit]), Inline: true},
	}
	if len(report.ByDetection) > 0 {
		lines := make([]string, 0, len(report.ByDetection))
		for detection, count := range report.ByDetection {
			lines = append(lines, fmt.Sprintf("%s: %d", detection, count))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "By detection", Value: strings.Join(lines, "\n"), Inline: false})
	}
	if len(report.TopUsers) > 0 {
		lines := make([]string, 0, len(report.TopUsers))
		for _, user := range report.TopUsers {
			lines = append(lines, fmt.Sprintf("<@%s>: %d", user.UserID, user.Count))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top offenders", Value: strings.Join(lines, "\n"), Inline: false})
	}

	b.respondEmbed(session, interaction, b.commandEmbed("Report", "Detections in the selected period.", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func commandUser(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	return ""
}

func mentionList(ids []string, prefix string) string {
	if len(ids) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, prefix+id+">")
	}
	return strings.Join(lines, "\n")
}

func onOff(value bool) string {
	if value {
		return "on"
	}
	return "off"
}
