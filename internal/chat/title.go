package chat

import "strings"

const maxTitleLen = 50

// TruncateTitle is the provisional title of a session created implicitly by
// its first message: the first 50 characters, with an ellipsis if cut.
func TruncateTitle(text string) string {
	r := []rune(text)
	if len(r) <= maxTitleLen {
		return text
	}
	return string(r[:maxTitleLen]) + "..."
}

// DeriveTitle builds a session title from the first user message. Whitespace
// runs collapse to one space; titles longer than 50 characters are cut to 47
// and suffixed with "...".
func DeriveTitle(firstMessage string) string {
	title := strings.Join(strings.Fields(firstMessage), " ")
	r := []rune(title)
	if len(r) <= maxTitleLen {
		return title
	}
	return strings.TrimSpace(string(r[:maxTitleLen-3])) + "..."
}
