package reconcile

import "errors"

var (
	// ErrInvalidReading is returned when a raw volume is negative or not finite.
	ErrInvalidReading = errors.New("reconcile: invalid reading")
	// ErrMissingReading is returned when a required meter channel is absent.
	ErrMissingReading = errors.New("reconcile: missing reading")
	// ErrNegativeVolume is returned when a closing reading is below its opening.
	ErrNegativeVolume = errors.New("reconcile: negative dispensed volume")
	// ErrMissingTankReading is returned when a dip reading required for
	// reconciliation is absent. There is no partial reconciliation without it.
	ErrMissingTankReading = errors.New("reconcile: missing tank reading")
	// ErrEmptyTankID is returned when a tank id is empty.
	ErrEmptyTankID = errors.New("reconcile: empty tank id")
)
