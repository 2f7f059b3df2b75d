package antispam

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestActionSeverityOrder(t *testing.T) {
	ordered := []Action{ActionWarn, ActionDelete, ActionMute, ActionKick, ActionBan, ActionLockdown}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Fatalf("expected %s < %s", ordered[i-1], ordered[i])
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"warn", "delete", "mute", "kick", "ban", "lockdown"} {
		action, err := ParseAction(name)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		if action.String() != name {
			t.Fatalf("expected %s, got %s", name, action)
		}
	}
	if _, err := ParseAction("nuke"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestEscalateStopsBelowLockdown(t *testing.T) {
	next, ok := ActionWarn.Escalate()
	if !ok || next != ActionDelete {
		t.Fatalf("expected warn -> delete, got %s ok=%t", next, ok)
	}
	next, ok = ActionKick.Escalate()
	if !ok || next != ActionBan {
		t.Fatalf("expected kick -> ban, got %s ok=%t", next, ok)
	}
	if _, ok := ActionBan.Escalate(); ok {
		t.Fatalf("ban must not escalate")
	}
	if _, ok := ActionLockdown.Escalate(); ok {
		t.Fatalf("lockdown must not escalate")
	}
}

func TestActionJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(ActionMute)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"mute"` {
		t.Fatalf("unexpected json: %s", data)
	}
	var action Action
	if err := json.Unmarshal([]byte(`"ban"`), &action); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if action != ActionBan {
		t.Fatalf("expected ban, got %s", action)
	}
	if err := json.Unmarshal([]byte(`"bogus"`), &action); err == nil {
		t.Fatalf("expected error for bogus action")
	}
}

func TestWorstPicksMostSevere(t *testing.T) {
	triggers := []Trigger{
		{Detection: DetectFlood, Action: ActionMute},
		{Detection: DetectMention, Action: ActionBan},
		{Detection: DetectEmoji, Action: ActionDelete},
	}
	worst, ok := Worst(triggers)
	if !ok || worst.Detection != DetectMention {
		t.Fatalf("expected mention trigger, got %+v", worst)
	}

	// ties keep evaluation order
	tied := []Trigger{
		{Detection: DetectFlood, Action: ActionMute},
		{Detection: DetectLink, Action: ActionMute},
	}
	worst, _ = Worst(tied)
	if worst.Detection != DetectFlood {
		t.Fatalf("expected first trigger on tie, got %+v", worst)
	}

	if _, ok := Worst(nil); ok {
		t.Fatalf("expected no trigger for empty set")
	}
}
