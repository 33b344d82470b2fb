package mqtt

import "errors"

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")
	// ErrUnknownCommand is returned for command topics nobody handles.
	ErrUnknownCommand = errors.New("unknown command")
)
