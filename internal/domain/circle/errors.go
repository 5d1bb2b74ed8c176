package circle

import "errors"

var (
	ErrCircleNotFound            = errors.New("circle not found")
	ErrInvalidPositionNumber     = errors.New("invalid position number")
	ErrPositionAlreadyFilled     = errors.New("position already filled")
	ErrMemberAlreadyInCircle     = errors.New("member already holds a position in this circle")
	ErrInvalidScheduleParameters = errors.New("invalid schedule parameters")
	ErrInvalidCircleParameters   = errors.New("invalid circle parameters")
)

// ErrPositionNotFound is returned for position numbers outside 1..N.
// errors.Is matches it against ErrInvalidPositionNumber as well.
var ErrPositionNotFound error = positionNotFound{}

type positionNotFound struct{}

func (positionNotFound) Error() string { return "position not found" }

func (positionNotFound) Is(target error) bool {
	return target == ErrInvalidPositionNumber
}
