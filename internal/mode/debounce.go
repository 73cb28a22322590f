package mode

import "time"

// debouncer turns a noisy trigger level into press edges. A new level only
// becomes stable after it has been observed unchanged for at least window.
// The zero value starts released.
type debouncer struct {
	window time.Duration

	raw    bool
	since  time.Time
	stable bool
}

// update feeds one observation and reports a stable released->pressed edge.
func (d *debouncer) update(now time.Time, level bool) bool {
	if level != d.raw {
		d.raw = level
		d.since = now
		return false
	}
	if d.raw != d.stable && now.Sub(d.since) >= d.window {
		d.stable = d.raw
		return d.stable
	}
	return false
}
