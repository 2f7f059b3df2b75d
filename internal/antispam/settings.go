package antispam

// GuildSettings holds every per-guild tunable. It is the logical
// shape of the JSON document the settings store persists.
type GuildSettings struct {
	Enabled bool `json:"enabled"`

	FloodMessages int    `json:"flood_messages"`
	FloodWindow   int    `json:"flood_window"`
	FloodAction   Action `json:"flood_action"`

	DuplicateEnabled bool   `json:"duplicate_enabled"`
	DuplicateCount   int    `json:"duplicate_count"`
	DuplicateWindow  int    `json:"duplicate_window"`
	DuplicateAction  Action `json:"duplicate_action"`

	MentionEnabled bool   `json:"mention_enabled"`
	MentionLimit   int    `json:"mention_limit"`
	MentionAction  Action `json:"mention_action"`

	LinkEnabled      bool   `json:"link_enabled"`
	LinkLimit        int    `json:"link_limit"`
	LinkWindow       int    `json:"link_window"`
	LinkAction       Action `json:"link_action"`
	InviteAutoDelete bool   `json:"invite_auto_delete"`

	EmojiEnabled bool   `json:"emoji_enabled"`
	EmojiLimit   int    `json:"emoji_limit"`
	EmojiAction  Action `json:"emoji_action"`

	NewlineEnabled bool   `json:"newline_enabled"`
	NewlineLimit   int    `json:"newline_limit"`
	NewlineAction  Action `json:"newline_action"`

	RaidEnabled bool   `json:"raid_enabled"`
	RaidJoins   int    `json:"raid_joins"`
	RaidWindow  int    `json:"raid_window"`
	RaidAction  Action `json:"raid_action"`

	AutoEscalate    bool `json:"auto_escalate"`
	EscalateStrikes int  `json:"escalate_strikes"`
	EscalateWindow  int  `json:"escalate_window"`

	MuteDuration  int `json:"mute_duration"`
	BanDeleteDays int `json:"ban_delete_days"`

	WhitelistedRoles    []string `json:"whitelisted_roles"`
	WhitelistedChannels []string `json:"whitelisted_channels"`
}

// DefaultSettings are applied lazily the first time a guild is seen.
func DefaultSettings() *GuildSettings {
	return &GuildSettings{
		Enabled: true,

		FloodMessages: 10,
		FloodWindow:   10,
		FloodAction:   ActionMute,

		DuplicateEnabled: true,
		DuplicateCount:   4,
		DuplicateWindow:  30,
		DuplicateAction:  ActionDelete,

		MentionEnabled: true,
		MentionLimit:   8,
		MentionAction:  ActionMute,

		LinkEnabled:      true,
		LinkLimit:        5,
		LinkWindow:       15,
		LinkAction:       ActionDelete,
		InviteAutoDelete: true,

		EmojiEnabled: true,
		EmojiLimit:   15,
		EmojiAction:  ActionDelete,

		NewlineEnabled: true,
		NewlineLimit:   25,
		NewlineAction:  ActionDelete,

		RaidEnabled: true,
		RaidJoins:   10,
		RaidWindow:  30,
		RaidAction:  ActionLockdown,

		AutoEscalate:    true,
		EscalateStrikes: 3,
		EscalateWindow:  600,

		MuteDuration:  3600,
		BanDeleteDays: 1,
	}
}

// SettingsPatch is a partial update: nil fields are left untouched.
type SettingsPatch struct {
	Enabled *bool

	FloodMessages *int
	FloodWindow   *int
	FloodAction   *Action

	DuplicateEnabled *bool
	DuplicateCount   *int
	DuplicateWindow  *int
	DuplicateAction  *Action

	MentionEnabled *bool
	MentionLimit   *int
	MentionAction  *Action

	LinkEnabled      *bool
	LinkLimit        *int
	LinkWindow       *int
	LinkAction       *Action
	InviteAutoDelete *bool

	EmojiEnabled *bool
	EmojiLimit   *int
	EmojiAction  *Action

	NewlineEnabled *bool
	NewlineLimit   *int
	NewlineAction  *Action

	RaidEnabled *bool
	RaidJoins   *int
	RaidWindow  *int
	RaidAction  *Action

	AutoEscalate    *bool
	EscalateStrikes *int
	EscalateWindow  *int

	MuteDuration  *int
	BanDeleteDays *int
}

func (p SettingsPatch) apply(s *GuildSettings) {
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	if p.FloodMessages != nil {
		s.FloodMessages = maxInt(1, *p.FloodMessages)
	}
	if p.FloodWindow != nil {
		s.FloodWindow = maxInt(1, *p.FloodWindow)
	}
	if p.FloodAction != nil {
		s.FloodAction = *p.FloodAction
	}
	if p.DuplicateEnabled != nil {
		s.DuplicateEnabled = *p.DuplicateEnabled
	}
	if p.DuplicateCount != nil {
		s.DuplicateCount = maxInt(2, *p.DuplicateCount)
	}
	if p.DuplicateWindow != nil {
		s.DuplicateWindow = maxInt(5, *p.DuplicateWindow)
	}
	if p.DuplicateAction != nil {
		s.DuplicateAction = *p.DuplicateAction
	}
	if p.MentionEnabled != nil {
		s.MentionEnabled = *p.MentionEnabled
	}
	if p.MentionLimit != nil {
		s.MentionLimit = maxInt(1, *p.MentionLimit)
	}
	if p.MentionAction != nil {
		s.MentionAction = *p.MentionAction
	}
	if p.LinkEnabled != nil {
		s.LinkEnabled = *p.LinkEnabled
	}
	if p.LinkLimit != nil {
		s.LinkLimit = maxInt(1, *p.LinkLimit)
	}
	if p.LinkWindow != nil {
		s.LinkWindow = maxInt(5, *p.LinkWindow)
	}
	if p.LinkAction != nil {
		s.LinkAction = *p.LinkAction
	}
	if p.InviteAutoDelete != nil {
		s.InviteAutoDelete = *p.InviteAutoDelete
	}
	if p.EmojiEnabled != nil {
		s.EmojiEnabled = *p.EmojiEnabled
	}
	if p.EmojiLimit != nil {
		s.EmojiLimit = maxInt(1, *p.EmojiLimit)
	}
	if p.EmojiAction != nil {
		s.EmojiAction = *p.EmojiAction
	}
	if p.NewlineEnabled != nil {
		s.NewlineEnabled = *p.NewlineEnabled
	}
	if p.NewlineLimit != nil {
		s.NewlineLimit = maxInt(1, *p.NewlineLimit)
	}
	if p.NewlineAction != nil {
		s.NewlineAction = *p.NewlineAction
	}
	if p.RaidEnabled != nil {
		s.RaidEnabled = *p.RaidEnabled
	}
	if p.RaidJoins != nil {
		s.RaidJoins = maxInt(3, *p.RaidJoins)
	}
	if p.RaidWindow != nil {
		s.RaidWindow = maxInt(10, *p.RaidWindow)
	}
	if p.RaidAction != nil {
		s.RaidAction = *p.RaidAction
	}
	if p.AutoEscalate != nil {
		s.AutoEscalate = *p.AutoEscalate
	}
	if p.EscalateStrikes != nil {
		s.EscalateStrikes = maxInt(2, *p.EscalateStrikes)
	}
	if p.EscalateWindow != nil {
		s.EscalateWindow = maxInt(60, *p.EscalateWindow)
	}
	if p.MuteDuration != nil {
		s.MuteDuration = clampInt(*p.MuteDuration, 60, 2419200)
	}
	if p.BanDeleteDays != nil {
		s.BanDeleteDays = clampInt(*p.BanDeleteDays, 0, 7)
	}
}

func (s *GuildSettings) clone() GuildSettings {
	out := *s
	out.WhitelistedRoles = append([]string(nil), s.WhitelistedRoles...)
	out.WhitelistedChannels = append([]string(nil), s.WhitelistedChannels...)
	return out
}

func maxInt(floor, value int) int {
	if value < floor {
		return floor
	}
	return value
}

func clampInt(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
