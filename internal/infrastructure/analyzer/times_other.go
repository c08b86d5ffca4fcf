//go:build !linux

package analyzer

import (
	"os"
	"time"
)

func statTimes(os.FileInfo) (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}
