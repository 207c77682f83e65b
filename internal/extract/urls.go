package extract

import (
	"regexp"
	"strings"
)

var (
	urlPattern          = regexp.MustCompile("(?i)https?://[^\\s\"'<>\\\\)`]+")
	markdownLinkPattern = regexp.MustCompile(`\[.*?\]\((https?://[^\s)]+)\)`)
)

// trailingPunctuation is trimmed from prose matches such as "see https://x.io/a."
const trailingPunctuation = ".,;:!?*"

func scanURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunctuation)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func scanMarkdownLinks(text string) []string {
	var out []string
	for _, m := range markdownLinkPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
