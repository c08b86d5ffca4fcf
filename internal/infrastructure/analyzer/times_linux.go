//go:build linux

package analyzer

import (
	"os"
	"syscall"
	"time"
)

func statTimes(info os.FileInfo) (accessed, changed time.Time, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return time.Unix(st.Atim.Unix()), time.Unix(st.Ctim.Unix()), true
}
