package antispam

import "fmt"

// Action is a punishment tier. The declaration order is the severity
// order: a later constant always outranks an earlier one.
type Action int

const (
	ActionWarn Action = iota
	ActionDelete
	ActionMute
	ActionKick
	ActionBan
	ActionLockdown
)

var actionNames = [...]string{
	ActionWarn:     "warn",
	ActionDelete:   "delete",
	ActionMute:     "mute",
	ActionKick:     "kick",
	ActionBan:      "ban",
	ActionLockdown: "lockdown",
}

func (a Action) String() string {
	if a < ActionWarn || a > ActionLockdown {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction maps a settings-document name to an Action.
func ParseAction(name string) (Action, error) {
	for action, known := range actionNames {
		if known == name {
			return Action(action), nil
		}
	}
	return ActionWarn, fmt.Errorf("unknown action %q", name)
}

// Escalate returns the next more severe action. Lockdown is
// raid-exclusive and never selected by escalation, so Ban and
// Lockdown do not escalate.
func (a Action) Escalate() (Action, bool) {
	if a >= ActionBan {
		return a, false
	}
	return a + 1, true
}

func (a Action) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Action) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("action must be a string, got %s", data)
	}
	parsed, err := ParseAction(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Detection identifies which rule produced a trigger.
type Detection string

const (
	DetectFlood     Detection = "flood"
	DetectDuplicate Detection = "duplicate"
	DetectMention   Detection = "mention"
	DetectLink      Detection = "link"
	DetectEmoji     Detection = "emoji"
	DetectNewline   Detection = "newline"
	DetectRaid      Detection = "raid"
)

// Trigger is one rule violation: what was detected, what to do about
// it, and a human-readable account of the numbers involved.
type Trigger struct {
	Detection Detection
	Action    Action
	Detail    string
}

// Worst returns the most severe trigger. Ties keep the earlier one,
// so evaluation order breaks them. Only the worst trigger's action is
// executed; the rest are reported.
func Worst(triggers []Trigger) (Trigger, bool) {
	if len(triggers) == 0 {
		return Trigger{}, false
	}
	worst := triggers[0]
	for _, trigger := range triggers[1:] {
		if trigger.Action > worst.Action {
			worst = trigger
		}
	}
	return worst, true
}
