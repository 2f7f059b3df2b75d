package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex         = regexp.MustCompile(`https?://[^\s]+`)
	inviteRegex      = regexp.MustCompile(`(?i)(?:discord\.gg|discord(?:app)?\.com/invite)/[A-Za-z0-9-]+`)
	customEmojiRegex = regexp.MustCompile(`<a?:\w+:\d+>`)
)

// ExtractURLs returns every http/https URL found in content.
func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// HasInviteLink reports whether content carries a Discord invite URL.
func HasInviteLink(content string) bool {
	return inviteRegex.MatchString(content)
}

// NormalizeHost extracts the lowercased, IDNA-encoded host of a raw URL.
func NormalizeHost(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host, nil
}

// MentionCount counts user/role mention tokens plus literal @everyone
// and @here occurrences in a single message.
func MentionCount(content string) int {
	return strings.Count(content, "<@") +
		strings.Count(content, "@everyone") +
		strings.Count(content, "@here")
}

// EmojiCount counts custom-emoji tokens and Unicode emoji codepoints
// in a single message.
func EmojiCount(content string) int {
	count := len(customEmojiRegex.FindAllString(content, -1))
	stripped := customEmojiRegex.ReplaceAllString(content, "")
	for _, r := range stripped {
		if isEmojiRune(r) {
			count++
		}
	}
	return count
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	}
	return false
}

// NormalizeContent is the canonical form used for duplicate detection.
func NormalizeContent(content string) string {
	return strings.ToLower(strings.TrimSpace(content))
}
