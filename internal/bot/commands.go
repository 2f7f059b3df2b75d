package bot

import "github.com/bwmarrin/discordgo"

var adminOnly = int64(discordgo.PermissionAdministrator)

func actionChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "warn", Value: "warn"},
		{Name: "delete", Value: "delete"},
		{Name: "mute", Value: "mute"},
		{Name: "kick", Value: "kick"},
		{Name: "ban", Value: "ban"},
	}
}

func raidActionChoices() []*discordgo.ApplicationCommandOptionChoice {
	return append(actionChoices(), &discordgo.ApplicationCommandOptionChoice{Name: "lockdown", Value: "lockdown"})
}

func boolOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        name,
		Description: description,
	}
}

func intOption(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
	}
}

func actionOption(choices []*discordgo.ApplicationCommandOptionChoice) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: "punishment when the rule fires",
		Choices:     choices,
	}
}

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "status",
			Description:              "Show anti-spam status and thresholds",
			DefaultMemberPermissions: &adminOnly,
		},
		{
			Name:                     "protection",
			Description:              "Enable or disable anti-spam protection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "on or off",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "on", Value: "on"},
						{Name: "off", Value: "off"},
					},
				},
			},
		},
		{
			Name:                     "flood",
			Description:              "Configure message flood detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				intOption("messages", "messages allowed in the window"),
				intOption("window", "window in seconds"),
				actionOption(actionChoices()),
			},
		},
		{
			Name:                     "duplicate",
			Description:              "Configure duplicate message detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("count", "identical messages before triggering"),
				intOption("window", "window in seconds"),
				actionOption(actionChoices()),
			},
		},
		{
			Name:                     "mention",
			Description:              "Configure mention spam detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("limit", "mentions allowed per message"),
				actionOption(actionChoices()),
			},
		},
		{
			Name:                     "link",
			Description:              "Configure link spam detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("limit", "links allowed in the window"),
				intOption("window", "window in seconds"),
				actionOption(actionChoices()),
				boolOption("invite_auto_delete", "delete Discord invite links on sight"),
			},
		},
		{
			Name:                     "emoji",
			Description:              "Configure emoji spam detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("limit", "emojis allowed per message"),
				actionOption(actionChoices()),
			},
		},
		{
			Name:                     "newline",
			Description:              "Configure newline spam detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("limit", "newlines allowed per message"),
				actionOption(actionChoices()),
			},
		},
		{
			Name:                     "raid",
			Description:              "Configure join raid detection",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable the rule"),
				intOption("joins", "joins allowed in the window"),
				intOption("window", "window in seconds"),
				actionOption(raidActionChoices()),
			},
		},
		{
			Name:                     "escalation",
			Description:              "Configure repeat-offender escalation",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				boolOption("enabled", "enable or disable escalation"),
				intOption("strikes", "strikes before escalating"),
				intOption("window", "strike window in seconds"),
			},
		},
		{
			Name:                     "punish",
			Description:              "Configure punishment parameters",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				intOption("mute_seconds", "mute duration in seconds"),
				intOption("ban_delete_days", "days of messages removed on ban"),
			},
		},
		{
			Name:                     "whitelist",
			Description:              "Manage whitelisted roles and channels",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "add, remove, or list",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "add", Value: "add"},
						{Name: "remove", Value: "remove"},
						{Name: "list", Value: "list"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "role",
					Description: "role to whitelist",
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "channel to whitelist",
				},
			},
		},
		{
			Name:                     "lockdown",
			Description:              "Toggle server lockdown",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "value",
					Description: "on or off",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "on", Value: "on"},
						{Name: "off", Value: "off"},
					},
				},
			},
		},
		{
			Name:                     "reset",
			Description:              "Clear a user's spam tracking",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "target user",
					Required:    true,
				},
			},
		},
		{
			Name:                     "strikes",
			Description:              "Show a user's current strikes",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "target user",
					Required:    true,
				},
			},
		},
		{
			Name:                     "report",
			Description:              "Detection report for this guild",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "day or week",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	return nil
}
