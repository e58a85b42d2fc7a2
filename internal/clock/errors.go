package clock

import "errors"

var (
	errAlreadyRunning     = errors.New("clock already running or completed")
	errUncorrectableDrift = errors.New("drift exceeded a full cycle; baseline re-anchored")
)
