package circle

import "time"

// Status is the lifecycle phase of a circle. It is derived on every read and never persisted.
type Status string

const (
	StatusStartingSoon Status = "STARTING_SOON"
	StatusAvailable    Status = "AVAILABLE"
	StatusInProgress   Status = "IN_PROGRESS"
)

// Label is the human readable form shown by front-ends.
func (s Status) Label() string {
	switch s {
	case StatusStartingSoon:
		return "Starting Soon"
	case StatusAvailable:
		return "Available"
	case StatusInProgress:
		return "In Progress"
	default:
		return string(s)
	}
}

// DeriveStatus computes the phase from the current time and the fill level.
// A circle stays InProgress once full; there is no terminal state.
func DeriveStatus(now, startDate time.Time, filledCount, totalPositions int) Status {
	if startDate.After(now) {
		return StatusStartingSoon
	}
	if filledCount < totalPositions {
		return StatusAvailable
	}
	return StatusInProgress
}

// StatusAt derives the status of c at now.
func (c *Circle) StatusAt(now time.Time) Status {
	return DeriveStatus(now, c.StartDate, c.FilledPositionsCount(), c.TotalPositions)
}
