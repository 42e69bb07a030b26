// Package parse converts the locale-formatted timestamps buffered by door
// controllers into absolute times.
package parse

import (
	"fmt"
	"strings"
	"time"
)

// controllerLayout is the civil-time format the controllers write to their
// offline buffers: DD/MM/YYYY HH:MM:SS, no zone marker.
const controllerLayout = "02/01/2006 15:04:05"

// LocalTimestamp interprets a controller-formatted timestamp in the given
// zone and returns the corresponding absolute time. The zone is an explicit
// parameter: controller clocks carry no offset of their own, so the caller
// must state which civil timezone the value was written in.
func LocalTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("timezone is required to interpret %q", s)
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.ParseInLocation(controllerLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid controller timestamp %q: %w", s, err)
	}
	return t, nil
}
