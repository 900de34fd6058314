package domain

// RequestContext is what a room command needs to know about its invocation.
type RequestContext struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Mentions  []string
}
