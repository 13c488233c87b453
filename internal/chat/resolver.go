package chat

import "strings"

// RoomID is the canonical key of a room: lowercase, whitespace runs collapsed
// to a single hyphen, no leading or trailing whitespace.
type RoomID string

// FallbackRoom is assigned when the geocoder resolves coordinates but no
// locality name is available.
const FallbackRoom RoomID = "unknown-city"

// Resolve canonicalizes a locality name into a RoomID. Two localities that
// differ only by case or whitespace map to the same room. Empty or
// whitespace-only input maps to FallbackRoom. Resolve is pure and its output
// is already canonical, so it is applied exactly once per locality.
func Resolve(locality string) RoomID {
	fields := strings.Fields(strings.ToLower(locality))
	if len(fields) == 0 {
		return FallbackRoom
	}
	return RoomID(strings.Join(fields, "-"))
}
