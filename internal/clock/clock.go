// Package clock defines the time source abstraction used for deterministic
// tests of retention boundaries and run timestamps.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}
