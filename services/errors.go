package services

import "errors"

// Error kinds returned by the services. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrConflictingSession = errors.New("an ongoing game session already exists for this group")
	ErrDuplicateName      = errors.New("player with this name already exists")
	ErrNoValidPlayers     = errors.New("no valid players for the game session")
	ErrNoNewPlayers       = errors.New("all selected players are already in the game session")
	ErrNoActivePlayers    = errors.New("no other active players in the game session")
	ErrValidationFailed   = errors.New("validation failed")

	ErrAvatarStorageUnavailable = errors.New("avatar storage is not configured")
)
