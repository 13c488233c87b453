package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the maximum number of UTF-8 code points a message may
// contain after trimming.
const MaxMessageLength = 255

// Message is a validated chat message. It is broadcast read-only to every
// member of the sender's room at broadcast time; late joiners never see it.
type Message struct {
	Text   string
	SentAt time.Time
}

// NewMessage trims the text and enforces the 1..255 code point length bound.
func NewMessage(text string, sentAt time.Time) (Message, error) {
	trimmed := strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		return Message{}, ErrMessageEmpty
	case n > MaxMessageLength:
		return Message{}, ErrMessageTooLong
	}
	return Message{Text: trimmed, SentAt: sentAt}, nil
}
