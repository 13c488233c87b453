package chat

import "fmt"

var (
	ErrInvalidCoordinate   = fmt.Errorf("latitude or longitude out of range")
	ErrCoordinatesRequired = fmt.Errorf("latitude and longitude are required")
	ErrLocationUnavailable = fmt.Errorf("unable to determine location")
	ErrNotJoined           = fmt.Errorf("no room joined yet")
	ErrAlreadyJoined       = fmt.Errorf("a room is already joined or being resolved")
	ErrMessageEmpty        = fmt.Errorf("message is empty")
	ErrMessageTooLong      = fmt.Errorf("message exceeds maximum length")
	ErrSessionClosed       = fmt.Errorf("session is disconnected")
	ErrSessionNotFound     = fmt.Errorf("session not found")
	ErrRegistryInternal    = fmt.Errorf("room registry inconsistency")
)
