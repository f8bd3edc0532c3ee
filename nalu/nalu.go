// Package nalu delimits Annex-B elementary streams into coded units.
package nalu

// NAL unit type codes carried in the low five bits of the unit header.
const (
	TypeNonIDR byte = 1 // Coded slice of a non-IDR picture.
	TypeIDR    byte = 5 // Coded slice of an IDR picture.
	TypeSEI    byte = 6 // Supplemental enhancement information.
	TypeSPS    byte = 7 // Sequence parameter set.
	TypePPS    byte = 8 // Picture parameter set.
	TypeAUD    byte = 9 // Access unit delimiter.
)

// MinUnitSize is the smallest span that can hold a prefixed unit:
// a 3-byte start code plus one header byte. Shorter trailing spans
// are truncated fragments.
const MinUnitSize = 4

// Span identifies one delimited coded unit inside a parent buffer.
// It carries no bytes of its own and is only valid while the parent
// buffer is alive. The span covers the unit's start-code prefix, since
// the engine consumes prefixed units.
type Span struct {
	Offset int
	Length int
}

// Bytes returns the span's view into its parent buffer.
func (sp Span) Bytes(buf []byte) []byte {
	return buf[sp.Offset : sp.Offset+sp.Length]
}

// startCodeLen reports the length of the Annex-B start code at pos,
// or 0 if there is none. Both the 3-byte (0x000001) and the 4-byte
// (0x00000001) forms are recognized.
func startCodeLen(buf []byte, pos int) int {
	if pos+2 >= len(buf) || buf[pos] != 0 || buf[pos+1] != 0 {
		return 0
	}
	if buf[pos+2] == 1 {
		return 3
	}
	if buf[pos+2] == 0 && pos+3 < len(buf) && buf[pos+3] == 1 {
		return 4
	}
	return 0
}

// findStartCode returns the offset of the next start code at or after
// from, or -1 if the remainder of the buffer holds none. When a 3-byte
// code is preceded by an extra zero the 4-byte form wins.
func findStartCode(buf []byte, from int) int {
	for i := from; i+2 < len(buf); i++ {
		if buf[i] != 0 || buf[i+1] != 0 {
			continue
		}
		if buf[i+2] == 1 {
			return i
		}
		if buf[i+2] == 0 && i+3 < len(buf) && buf[i+3] == 1 {
			return i
		}
	}
	return -1
}

// Scanner walks a buffer and yields one Span per coded unit. Each call
// to NewScanner starts an independent walk: scanning never mutates the
// buffer and two scanners over the same bytes yield identical spans.
type Scanner struct {
	buf  []byte
	next int
}

// NewScanner returns a scanner positioned at the start of buf.
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Next yields the next span, or ok=false once the buffer is exhausted.
//
// Bytes before the first start code, and a dangling fragment after the
// last one, are surfaced as spans of their own: deciding whether such a
// span is a decodable unit or a truncation is the caller's policy, not
// the delimiter's. A unit that begins at end of stream without any
// payload (a bare trailing start code) is still surfaced, so callers
// see the truncation. Empty payloads between two markers are skipped.
func (s *Scanner) Next() (sp Span, ok bool) {
	for s.next < len(s.buf) {
		start := s.next
		sc := startCodeLen(s.buf, start)

		end := findStartCode(s.buf, start+sc)
		last := end < 0
		if last {
			end = len(s.buf)
		}
		s.next = end

		if end-start > sc || last {
			return Span{Offset: start, Length: end - start}, true
		}
	}
	return Span{}, false
}

// Split eagerly delimits buf into spans. Equivalent to draining a fresh
// Scanner.
func Split(buf []byte) []Span {
	var spans []Span
	s := NewScanner(buf)
	for sp, ok := s.Next(); ok; sp, ok = s.Next() {
		spans = append(spans, sp)
	}
	return spans
}

// Payload returns the unit without its start-code prefix. The result
// is empty for a bare start code.
func Payload(unit []byte) []byte {
	return unit[startCodeLen(unit, 0):]
}

// UnitType returns the NAL type bits of a prefixed or raw unit, or 0
// if the unit is too short to carry a header.
func UnitType(unit []byte) byte {
	p := Payload(unit)
	if len(p) == 0 {
		return 0
	}
	return p[0] & 0x1f
}
