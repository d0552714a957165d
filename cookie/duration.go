package cookie

import (
	"strconv"
	"strings"
	"time"

	rarerr "github.com/LeChatP/RootAsRole-sub001/errors"
)

// parseHMS parses a policy document's timeout.duration string, written
// as "HH:MM:SS" (§3 Options: `timeout { ... duration, ... }`).
func parseHMS(raw string) (time.Duration, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return 0, rarerr.New(rarerr.ConfigurationError, "parse_duration", "expected HH:MM:SS, got "+raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, rarerr.Wrap(err, rarerr.ConfigurationError, "parse_duration")
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, rarerr.Wrap(err, rarerr.ConfigurationError, "parse_duration")
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, rarerr.Wrap(err, rarerr.ConfigurationError, "parse_duration")
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || hours < 0 {
		return 0, rarerr.New(rarerr.ConfigurationError, "parse_duration", "field out of range in "+raw)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}
