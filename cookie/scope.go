package cookie

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/LeChatP/RootAsRole-sub001/policy"
)

// ControllingTTYDevice returns the device number of the caller's
// controlling terminal, read from the tty_nr field of /proc/self/stat.
// A process with no controlling tty has tty_nr 0 and gets found=false.
func ControllingTTYDevice() (uint64, bool) {
	data, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, false
	}
	line := string(data)
	// tty_nr is the 7th overall field, i.e. fields[7-3] after the
	// parenthesized comm field (see ParentStartTime).
	fields := strings.Fields(line[strings.LastIndexByte(line, ')')+1:])
	if len(fields) <= 7-3 {
		return 0, false
	}
	dev, err := strconv.ParseInt(fields[7-3], 10, 64)
	if err != nil || dev == 0 {
		return 0, false
	}
	return uint64(dev), true
}

// ParentStartTime reads the parent process's start time (in clock
// ticks since boot) from /proc/<ppid>/stat, field 22, to defeat pid
// reuse the way §4.9 requires ("parent pid + parent start-time").
func ParentStartTime(ppid int) (uint64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/stat", ppid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	if !scanner.Scan() {
		return 0, fmt.Errorf("cookie: empty /proc/%d/stat", ppid)
	}
	line := scanner.Text()

	// The comm field (2nd, parenthesized) may itself contain spaces or
	// parens, so split on the last ')' rather than by naive whitespace.
	closeParen := strings.LastIndexByte(line, ')')
	if closeParen < 0 {
		return 0, fmt.Errorf("cookie: malformed /proc/%d/stat", ppid)
	}
	fields := strings.Fields(line[closeParen+1:])
	// fields[0] is state (3rd overall field); starttime is the 22nd
	// overall field, i.e. fields[22-3] = fields[19].
	const startTimeFieldIndex = 22 - 3
	if len(fields) <= startTimeFieldIndex {
		return 0, fmt.Errorf("cookie: /proc/%d/stat has too few fields", ppid)
	}
	start, err := strconv.ParseUint(fields[startTimeFieldIndex], 10, 64)
	if err != nil {
		return 0, err
	}
	return start, nil
}

// ComputeScope derives a ScopeKey for the caller under the given
// timeout type (§4.9). The "no tty" case returns found=false, per the
// rule that ttyless callers get no cookie at all.
func ComputeScope(t policy.TimestampType) (ScopeKey, bool) {
	switch t {
	case policy.TimestampTTY:
		dev, ok := ControllingTTYDevice()
		if !ok {
			return ScopeKey{}, false
		}
		return ScopeKey{Type: policy.TimestampTTY, TTYDevice: dev}, true
	case policy.TimestampPPID:
		ppid := unix.Getppid()
		start, err := ParentStartTime(ppid)
		if err != nil {
			return ScopeKey{}, false
		}
		return ScopeKey{Type: policy.TimestampPPID, PPID: ppid, PPIDStart: start}, true
	case policy.TimestampUID:
		return ScopeKey{Type: policy.TimestampUID}, true
	default:
		return ScopeKey{}, false
	}
}
