package nalu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		buf   []byte
		spans []Span
	}{
		{
			name:  "empty_buffer",
			buf:   nil,
			spans: nil,
		},
		{
			name:  "no_start_code_raw_fallback",
			buf:   []byte{0x65, 0x88, 0x84, 0x21},
			spans: []Span{{Offset: 0, Length: 4}},
		},
		{
			name:  "single_three_byte_prefixed_unit",
			buf:   []byte{0x00, 0x00, 0x01, 0x67, 0x42, 0x00},
			spans: []Span{{Offset: 0, Length: 6}},
		},
		{
			name:  "single_four_byte_prefixed_unit",
			buf:   []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42},
			spans: []Span{{Offset: 0, Length: 6}},
		},
		{
			name: "two_units_mixed_prefixes",
			buf: []byte{
				0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1e,
				0x00, 0x00, 0x01, 0x68, 0xce, 0x38, 0x80,
			},
			spans: []Span{
				{Offset: 0, Length: 8},
				{Offset: 8, Length: 7},
			},
		},
		{
			name: "leading_bytes_before_first_marker",
			buf: []byte{
				0xde, 0xad,
				0x00, 0x00, 0x01, 0x65, 0x88,
			},
			spans: []Span{
				{Offset: 0, Length: 2},
				{Offset: 2, Length: 5},
			},
		},
		{
			name: "dangling_trailing_fragment",
			buf: []byte{
				0x00, 0x00, 0x01, 0x65, 0x88, 0x80,
				0x00, 0x00, 0x01, 0x41,
			},
			spans: []Span{
				{Offset: 0, Length: 6},
				{Offset: 6, Length: 4},
			},
		},
		{
			name: "empty_payload_between_markers_skipped",
			buf: []byte{
				0x00, 0x00, 0x01,
				0x00, 0x00, 0x01, 0x68, 0xce,
			},
			spans: []Span{{Offset: 3, Length: 5}},
		},
		{
			name:  "lone_start_code_surfaced_as_dangling_span",
			buf:   []byte{0x00, 0x00, 0x01},
			spans: []Span{{Offset: 0, Length: 3}},
		},
		{
			name: "bare_trailing_start_code_surfaced",
			buf: []byte{
				0x00, 0x00, 0x01, 0x65, 0x88,
				0x00, 0x00, 0x00, 0x01,
			},
			spans: []Span{
				{Offset: 0, Length: 5},
				{Offset: 5, Length: 4},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.spans, Split(tt.buf))
		})
	}
}

func TestScannerRestartable(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1e,
		0x00, 0x00, 0x01, 0x68, 0xce,
		0x00, 0x00, 0x01, 0x65, 0x88, 0x80, 0x00,
	}

	first := Split(buf)
	second := Split(buf)
	require.Equal(t, first, second)

	// Interleaved scanners do not share cursor state.
	a := NewScanner(buf)
	b := NewScanner(buf)
	spA, okA := a.Next()
	require.True(t, okA)
	spB, okB := b.Next()
	require.True(t, okB)
	assert.Equal(t, spA, spB)
}

func TestScannerSpansCoverPayloadBytes(t *testing.T) {
	t.Parallel()

	buf := []byte{
		0x00, 0x00, 0x01, 0x67, 0x42,
		0x00, 0x00, 0x01, 0x65, 0x88,
	}

	s := NewScanner(buf)
	sp, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x67, 0x42}, sp.Bytes(buf))

	sp, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x65, 0x88}, sp.Bytes(buf))

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestPayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x67, 0x42}, Payload([]byte{0x00, 0x00, 0x01, 0x67, 0x42}))
	assert.Equal(t, []byte{0x65}, Payload([]byte{0x65}))
	assert.Empty(t, Payload([]byte{0x00, 0x00, 0x01}))
	assert.Empty(t, Payload([]byte{0x00, 0x00, 0x00, 0x01}))
}

func TestUnitType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		unit []byte
		typ  byte
	}{
		{"sps_three_byte_prefix", []byte{0x00, 0x00, 0x01, 0x67, 0x42}, TypeSPS},
		{"pps_four_byte_prefix", []byte{0x00, 0x00, 0x00, 0x01, 0x68}, TypePPS},
		{"idr_raw_unit", []byte{0x65, 0x88}, TypeIDR},
		{"empty_unit", nil, 0},
		{"bare_start_code", []byte{0x00, 0x00, 0x01}, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.typ, UnitType(tt.unit))
		})
	}
}
