package utils

import (
	"testing"
	"time"
)

func TestWindowAdd(t *testing.T) {
	window := NewWindow()
	now := time.Now()
	span := 2 * time.Second

	if count := window.Add(now, span); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500*time.Millisecond), span)
	if count := window.Count(now.Add(1*time.Second), span); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3*time.Second), span); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestWindowClear(t *testing.T) {
	window := NewWindow()
	now := time.Now()
	window.Add(now, time.Minute)
	window.Add(now.Add(time.Second), time.Minute)
	window.Clear()
	if count := window.Count(now.Add(2*time.Second), time.Minute); count != 0 {
		t.Fatalf("expected 0 after clear, got %d", count)
	}
}

func TestTaggedWindowCountTag(t *testing.T) {
	window := NewTaggedWindow()
	now := time.Unix(0, 0)
	span := 30 * time.Second

	window.Add(now, span, "hello")
	window.Add(now.Add(1*time.Second), span, "world")
	window.Add(now.Add(2*time.Second), span, "hello")
	if count := window.CountTag(now.Add(2*time.Second), span, "hello"); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(2*time.Second), span); count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}

	// everything falls out of the span
	if count := window.CountTag(now.Add(40*time.Second), span, "hello"); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}
