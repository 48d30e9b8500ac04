package core

import (
	"errors"
)

var (
	ErrInvalidConfiguration = errors.New("invalid system configuration")
	ErrNotInitialized       = errors.New("system not initialized")
	ErrContainerFull        = errors.New("container reached its maximum capacity")
)
