package clock

import "time"

// Clock provides time to the application. Implementations return UTC so that
// createdAt/updatedAt stamps serialize consistently.
type Clock interface {
	Now() time.Time
}
