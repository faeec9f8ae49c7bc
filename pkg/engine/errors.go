package engine

import "errors"

var (
	ErrBusy           = errors.New("a generation is already in flight")
	ErrAlreadyStarted = errors.New("a game is already in progress")
	ErrNotPlaying     = errors.New("no game in progress")
	ErrNoGenres       = errors.New("at least one genre must be selected")
	ErrUnknownOption  = errors.New("option is not one of the current choices")
	ErrChoiceLocked   = errors.New("a different option was already chosen for this turn")
	ErrStale          = errors.New("result discarded: the game was reset while it was generating")
)
