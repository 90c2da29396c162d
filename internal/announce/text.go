package announce

import (
	"regexp"
	"strings"
)

const (
	codeBlockMarker = "code block"
	urlMarker       = "link"
	ellipsisMarker  = "and so on"
)

var (
	codeBlockPattern   = regexp.MustCompile("(?s)```.*?```")
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	userMentionPattern = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern = regexp.MustCompile(`<@&(\d+)>`)
	channelPattern     = regexp.MustCompile(`<#(\d+)>`)
	emojiPattern       = regexp.MustCompile(`<a?:(\w+):\d+>`)
)

// Names resolves platform ids to readable names. Unknown ids resolve to "".
type Names interface {
	DisplayName(guildID, userID string) string
	RoleName(guildID, roleID string) string
	ChannelName(channelID string) string
}

// Clean turns raw chat text into something worth reading aloud: code blocks
// and links collapse to a marker, mentions become names, and text longer
// than limit runes is cut with an ellipsis marker. A limit of 0 disables the
// cut.
func Clean(text, guildID string, names Names, limit int) string {
	text = codeBlockPattern.ReplaceAllString(text, codeBlockMarker)
	text = urlPattern.ReplaceAllString(text, urlMarker)

	text = replaceIDs(text, userMentionPattern, func(id string) string {
		return names.DisplayName(guildID, id)
	})
	text = replaceIDs(text, roleMentionPattern, func(id string) string {
		return names.RoleName(guildID, id)
	})
	text = replaceIDs(text, channelPattern, names.ChannelName)
	text = emojiPattern.ReplaceAllStringFunc(text, func(m string) string {
		name := emojiPattern.FindStringSubmatch(m)[1]
		return strings.ReplaceAll(name, "_", " ")
	})
	text = strings.ReplaceAll(text, "@everyone", "everyone")
	text = strings.ReplaceAll(text, "@here", "here")

	text = strings.TrimSpace(text)
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = string(runes[:limit]) + " " + ellipsisMarker
		}
	}
	return text
}

// replaceIDs swaps each match for resolve(id), keeping the bare id when the
// name is unknown.
func replaceIDs(text string, re *regexp.Regexp, resolve func(id string) string) string {
	return re.ReplaceAllStringFunc(text, func(m string) string {
		id := re.FindStringSubmatch(m)[1]
		if name := resolve(id); name != "" {
			return name
		}
		return id
	})
}
