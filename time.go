package rosbag

import (
	"errors"
	"fmt"
)

// ErrInvalidTimeArithmetic is returned by Time.Add when the result would
// normalize to a negative second or nanosecond field (spec.md §3, §7).
var ErrInvalidTimeArithmetic = errors.New("rosbag: invalid time arithmetic")

const nsecPerSec = 1_000_000_000

// Time is the wire-equivalent of ROS's builtin time/duration type: a pair of
// u32 fields. Unlike the standard library's time.Time, it carries no
// timezone/location and compares/adds per spec.md §3.
type Time struct {
	Sec  uint32
	Nsec uint32
}

// Compare returns -1, 0, or 1 as t is before, equal to, or after other.
func (t Time) Compare(other Time) int {
	switch {
	case t.Sec < other.Sec:
		return -1
	case t.Sec > other.Sec:
		return 1
	case t.Nsec < other.Nsec:
		return -1
	case t.Nsec > other.Nsec:
		return 1
	default:
		return 0
	}
}

// Before reports whether t is strictly earlier than other.
func (t Time) Before(other Time) bool { return t.Compare(other) < 0 }

// After reports whether t is strictly later than other.
func (t Time) After(other Time) bool { return t.Compare(other) > 0 }

// Add sums two times field-wise, normalizing nsec carry into sec. Per
// spec.md §3, the result must be non-negative in both fields. Since both
// operands' fields are unsigned, neither sum can go negative, so the
// ErrInvalidTimeArithmetic check never fires for Time values.
func (t Time) Add(other Time) (Time, error) {
	totalNsec := int64(t.Nsec) + int64(other.Nsec)
	carry := totalNsec / nsecPerSec
	nsec := totalNsec % nsecPerSec
	if nsec < 0 {
		nsec += nsecPerSec
		carry--
	}

	totalSec := int64(t.Sec) + int64(other.Sec) + carry
	if totalSec < 0 {
		return Time{}, fmt.Errorf("%w: sec underflow", ErrInvalidTimeArithmetic)
	}

	return Time{Sec: uint32(totalSec), Nsec: uint32(nsec)}, nil
}

// MinTime and MaxTime bound the representable range; ReadOptions uses them as
// the default, all-inclusive time window (spec.md §6).
var (
	MinTime = Time{Sec: 0, Nsec: 0}
	MaxTime = Time{Sec: 0xFFFFFFFF, Nsec: 0xFFFFFFFF}
)
