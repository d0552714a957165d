package envcalc

import (
	"os"
	"path/filepath"
	"strings"
)

// statFunc lets tests substitute the filesystem probe used by
// filterSafePath without touching the real filesystem.
var statFunc = os.Stat

// filterSafePath keeps only the PATH entries that exist and are not
// world-writable, implementing path_behavior=keep-safe (§4.8).
func filterSafePath(callerPath string) string {
	if callerPath == "" {
		return ""
	}
	var kept []string
	for _, dir := range filepath.SplitList(callerPath) {
		if dir == "" {
			continue
		}
		info, err := statFunc(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if info.Mode().Perm()&0o002 != 0 {
			continue
		}
		kept = append(kept, dir)
	}
	return strings.Join(kept, string(os.PathListSeparator))
}
