package media

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ParseSlice parses a "START-END" range where each endpoint is a
// timestamp accepted by ParseTimestamp.
func ParseSlice(s string) (Slice, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Slice{}, errors.Errorf("invalid slice %q, expected START-END", s)
	}
	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return Slice{}, errors.Wrapf(err, "invalid slice start in %q", s)
	}
	end, err := ParseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return Slice{}, errors.Wrapf(err, "invalid slice end in %q", s)
	}
	sl := Slice{Start: start, End: end}
	if err := sl.Validate(); err != nil {
		return Slice{}, err
	}
	return sl, nil
}

// ParseTimestamp parses "SS", "MM:SS", or "HH:MM:SS" (fractional seconds
// allowed) into a duration.
func ParseTimestamp(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty timestamp")
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, errors.Errorf("invalid timestamp %q", s)
	}
	var total float64
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, errors.Errorf("invalid timestamp %q", s)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), nil
}
