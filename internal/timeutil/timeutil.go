package timeutil

import "time"

// NowUnix returns the current Unix time in seconds.
func NowUnix() int64 {
	return time.Now().Unix()
}
