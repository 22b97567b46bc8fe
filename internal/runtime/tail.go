package runtime

// Keeps the last n bytes written to it.
//
// Build logs can be arbitrarily long; only the end is useful for reporting a
// failure.
type tailBuffer struct {
	buf []byte
	max int
}

// Creates a buffer keeping at most max bytes.
func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

// Appends p, discarding the oldest bytes beyond the limit. Never fails.
func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

// Returns the retained bytes.
func (t *tailBuffer) String() string {
	return string(t.buf)
}
