package format

// MaxLineLength is the largest line that will be emitted. It fits one
// unfragmented Ethernet frame: 1500 - (40 + 32) bytes of IPv6 and TCP
// headers.
const MaxLineLength = 1428

// Line is an append-only byte buffer that refuses to grow past its limit.
// A failed append leaves the line unchanged.
type Line struct {
	buf   []byte
	limit int
}

// NewLine returns an empty line bounded at limit bytes.
func NewLine(limit int) *Line {
	return &Line{buf: make([]byte, 0, limit), limit: limit}
}

// AppendString appends s or returns ErrLineTooLong.
func (l *Line) AppendString(s string) error {
	if len(l.buf)+len(s) > l.limit {
		return ErrLineTooLong
	}

	l.buf = append(l.buf, s...)

	return nil
}

// AppendByte appends c or returns ErrLineTooLong.
func (l *Line) AppendByte(c byte) error {
	if len(l.buf)+1 > l.limit {
		return ErrLineTooLong
	}

	l.buf = append(l.buf, c)

	return nil
}

// Len returns the number of bytes written.
func (l *Line) Len() int { return len(l.buf) }

// String returns the line contents.
func (l *Line) String() string { return string(l.buf) }
