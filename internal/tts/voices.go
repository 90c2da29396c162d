package tts

import (
	"slices"
	"strings"
)

const (
	CategoryVoiceText = "voicetext"
	CategoryOpenAI    = "openai"
	CategoryInm       = "inm"
	CategoryCookie    = "cookie"
)

// VoiceType is one selectable voice. ID is "category:name".
type VoiceType struct {
	ID       string
	Title    string
	Category string
}

func (v VoiceType) Name() string {
	_, name, _ := strings.Cut(v.ID, ":")
	return name
}

// ClipName is the voice name used by the clip categories, where the spoken
// text selects the clip.
const ClipName = "clip"

var builtinVoices = []VoiceType{
	{ID: "voicetext:show", Title: "Show", Category: CategoryVoiceText},
	{ID: "voicetext:haruka", Title: "Haruka", Category: CategoryVoiceText},
	{ID: "voicetext:hikari", Title: "Hikari", Category: CategoryVoiceText},
	{ID: "voicetext:takeru", Title: "Takeru", Category: CategoryVoiceText},
	{ID: "voicetext:santa", Title: "Santa", Category: CategoryVoiceText},
	{ID: "voicetext:bear", Title: "Bear", Category: CategoryVoiceText},
	{ID: "openai:alloy", Title: "Alloy", Category: CategoryOpenAI},
	{ID: "openai:echo", Title: "Echo", Category: CategoryOpenAI},
	{ID: "openai:fable", Title: "Fable", Category: CategoryOpenAI},
	{ID: "openai:onyx", Title: "Onyx", Category: CategoryOpenAI},
	{ID: "openai:nova", Title: "Nova", Category: CategoryOpenAI},
	{ID: "openai:shimmer", Title: "Shimmer", Category: CategoryOpenAI},
	{ID: "inm:" + ClipName, Title: "INM", Category: CategoryInm},
	{ID: "cookie:" + ClipName, Title: "Cookie", Category: CategoryCookie},
}

// Gates switch the per-guild voice categories on.
type Gates struct {
	Inm    bool
	Cookie bool
}

// Catalog lists the voices whose provider is configured.
type Catalog struct {
	voices       []VoiceType
	defaultVoice string
}

// NewCatalog keeps the builtin voices of the given categories. The default
// voice must be one of them, otherwise the first available voice is used.
func NewCatalog(categories []string, defaultVoice string) *Catalog {
	c := &Catalog{}
	for _, v := range builtinVoices {
		if slices.Contains(categories, v.Category) {
			c.voices = append(c.voices, v)
		}
	}
	c.defaultVoice = defaultVoice
	if _, ok := c.Lookup(defaultVoice); !ok {
		c.defaultVoice = ""
		for _, v := range c.voices {
			if !isClipCategory(v.Category) {
				c.defaultVoice = v.ID
				break
			}
		}
	}
	return c
}

func (c *Catalog) Default() string {
	return c.defaultVoice
}

func (c *Catalog) Lookup(id string) (VoiceType, bool) {
	for _, v := range c.voices {
		if v.ID == id {
			return v, true
		}
	}
	return VoiceType{}, false
}

// Available lists the voices a member of a guild may pick.
func (c *Catalog) Available(g Gates) []VoiceType {
	out := make([]VoiceType, 0, len(c.voices))
	for _, v := range c.voices {
		if allowed(v, g) {
			out = append(out, v)
		}
	}
	return out
}

// Allowed reports whether id exists and is enabled for the guild.
func (c *Catalog) Allowed(id string, g Gates) bool {
	v, ok := c.Lookup(id)
	return ok && allowed(v, g)
}

// Resolve returns the voice to read with: the user's choice when it is still
// allowed, else the default.
func (c *Catalog) Resolve(userVoice string, g Gates) string {
	if userVoice != "" && c.Allowed(userVoice, g) {
		return userVoice
	}
	return c.defaultVoice
}

// Search returns voices whose id or title contains query, case-insensitively.
func (c *Catalog) Search(query string, g Gates, limit int) []VoiceType {
	q := strings.ToLower(query)
	var out []VoiceType
	for _, v := range c.Available(g) {
		if strings.Contains(strings.ToLower(v.ID), q) || strings.Contains(strings.ToLower(v.Title), q) {
			out = append(out, v)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func allowed(v VoiceType, g Gates) bool {
	switch v.Category {
	case CategoryInm:
		return g.Inm
	case CategoryCookie:
		return g.Cookie
	}
	return true
}

func isClipCategory(category string) bool {
	return category == CategoryInm || category == CategoryCookie
}
