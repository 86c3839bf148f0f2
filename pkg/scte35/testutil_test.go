package scte35

import "time"

func fixedNow() time.Time {
	return time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC)
}
