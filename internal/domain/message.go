package domain

// SectionKind enumerates the display sections a channel message can hold.
type SectionKind string

const (
	SectionHeader  SectionKind = "header"
	SectionText    SectionKind = "text"
	SectionContext SectionKind = "context"
)

// Section is one display block of a message.
type Section struct {
	Kind SectionKind
	Text string
}

// Message is what gets posted to a channel. Text is the fallback shown by
// clients that cannot render sections.
type Message struct {
	Text     string
	Sections []Section
}

// PlainMessage builds a message without sections.
func PlainMessage(text string) Message {
	return Message{Text: text}
}
