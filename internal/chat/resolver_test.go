package chat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/citychat/citychat/internal/chat"
)

func TestResolveCanonicalizesLocalities(t *testing.T) {
	tests := []struct {
		name     string
		locality string
		want     chat.RoomID
	}{
		{"simple city", "Paris", "paris"},
		{"trailing whitespace", "New York ", "new-york"},
		{"case and inner runs", "  SAN    Francisco ", "san-francisco"},
		{"tabs and newlines", "Rio\tde\nJaneiro", "rio-de-janeiro"},
		{"empty input", "", chat.FallbackRoom},
		{"whitespace only", "   \t ", chat.FallbackRoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chat.Resolve(tt.locality))
		})
	}
}

func TestResolveEquivalentSpellingsShareRoom(t *testing.T) {
	assert.Equal(t, chat.Resolve("New York"), chat.Resolve("new   YORK "))
}

func TestResolveIsDeterministic(t *testing.T) {
	first := chat.Resolve("Buenos Aires")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, chat.Resolve("Buenos Aires"))
	}
}
