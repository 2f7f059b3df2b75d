package utils

import "testing"

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("see https://example.com/a and http://other.org")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d", len(urls))
	}
}

func TestHasInviteLink(t *testing.T) {
	if !HasInviteLink("join https://discord.gg/abc123") {
		t.Fatalf("expected invite match")
	}
	if !HasInviteLink("https://discord.com/invite/xyz") {
		t.Fatalf("expected invite match")
	}
	if HasInviteLink("https://example.com/invite/xyz") {
		t.Fatalf("did not expect invite match")
	}
}

func TestNormalizeHost(t *testing.T) {
	host, err := NormalizeHost("https://Example.com/path?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if host != "example.com" {
		t.Fatalf("unexpected host: %s", host)
	}
}

func TestMentionCount(t *testing.T) {
	content := "<@123> <@!456> <@&789> @everyone @here"
	if count := MentionCount(content); count != 5 {
		t.Fatalf("expected 5, got %d", count)
	}
}

func TestEmojiCount(t *testing.T) {
	if count := EmojiCount("<:pepe:1234567890> <a:wave:987654321>"); count != 2 {
		t.Fatalf("expected 2 custom emoji, got %d", count)
	}
	if count := EmojiCount("hi \U0001F600\U0001F600 ❤"); count != 3 {
		t.Fatalf("expected 3 unicode emoji, got %d", count)
	}
	if count := EmojiCount("plain text"); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestNormalizeContent(t *testing.T) {
	if NormalizeContent("  Hi ") != "hi" {
		t.Fatalf("expected trim+lowercase")
	}
}
