// Package godec decodes compressed H.264 elementary streams into raw picture buffers.
package godec

import "fmt"

// Status is the per-submission state reported by the decoding engine.
// Zero means the unit was consumed without error; any other value is a
// bitmask of engine error conditions. Codes outside the known set are
// still treated as errors, never as success.
type Status int32

// Engine state codes, matching the native decoder contract.
const (
	StatusErrorFree          Status = 0x0000 // No error, unit fully consumed.
	StatusFramePending       Status = 0x0001 // Need more units before a frame completes.
	StatusRefLost            Status = 0x0002 // A reference picture was lost.
	StatusBitstreamError     Status = 0x0004 // Syntax error in the coded unit.
	StatusDepLayerLost       Status = 0x0008 // Dependency layer missing.
	StatusNoParamSets        Status = 0x0010 // SPS/PPS not yet received.
	StatusDataErrorConcealed Status = 0x0020 // Errors present but concealed.
	StatusInvalidArgument    Status = 0x1000 // Bad submission arguments.
	StatusInitialOptExpected Status = 0x2000 // Engine not configured.
	StatusOutOfMemory        Status = 0x4000 // Engine allocation failure.
)

// Ok reports whether the submission was consumed without any error condition.
func (s Status) Ok() bool {
	return s == StatusErrorFree
}

// String returns a short human-readable form of the status code.
func (s Status) String() string {
	if s.Ok() {
		return "ERROR_FREE"
	}
	return fmt.Sprintf("DECODE_ERROR(0x%04x)", uint32(s))
}

// ConcealmentMode selects the engine's strategy for approximating
// missing or corrupted picture data instead of failing outright.
type ConcealmentMode int32

const (
	ConcealDisable   ConcealmentMode = iota // Fail on damaged data.
	ConcealFrameCopy                        // Replace damaged frames with the last good one.
	ConcealSliceCopy                        // Patch damaged slices from co-located good slices.
)

// BitstreamType hints the engine about the coded stream flavor.
type BitstreamType int32

const (
	BitstreamAVC BitstreamType = iota // Plain AVC stream.
	BitstreamSVC                      // Scalable extension stream.

	// BitstreamDefault lets the engine treat the stream as possibly scalable.
	BitstreamDefault = BitstreamSVC
)

// TargetLayerAll selects the highest available dependency/quality layer.
const TargetLayerAll uint8 = 255

// Config carries the one-time engine session parameters.
type Config struct {
	TargetLayer uint8           // Dependency/quality layer to output.
	Concealment ConcealmentMode // Error-concealment policy.
	Bitstream   BitstreamType   // Coded stream flavor hint.
}

// DefaultConfig returns the session parameters used when the caller has
// no reason to deviate: all layers, slice-copy concealment, default
// bitstream handling.
func DefaultConfig() Config {
	return Config{
		TargetLayer: TargetLayerAll,
		Concealment: ConcealSliceCopy,
		Bitstream:   BitstreamDefault,
	}
}

// Picture describes one reconstructed frame. The plane memory belongs to
// the engine's internal buffer ring: a Picture is only valid until the
// next Submit, Flush or Close call on the engine that produced it.
// Callers that retain picture data must copy it out first (see frame/yuv).
type Picture struct {
	Width   int       // Luma width in pixels.
	Height  int       // Luma height in pixels.
	Planes  [3][]byte // Y, Cb, Cr planes, borrowed from the engine.
	Strides [3]int    // Bytes per row for each plane.
}

// Engine is the narrow contract of the stateful decoding engine. An
// Engine is not safe for concurrent use: at most one call may be in
// flight at any time, and each call blocks until the engine finishes.
type Engine interface {
	// Configure applies the one-time session parameters. It must be
	// called exactly once, before any Submit or Flush.
	Configure(cfg Config) error
	// Submit feeds one coded unit to the engine. The returned Picture,
	// if any, is borrowed (see Picture).
	Submit(unit []byte) (Status, *Picture)
	// Flush releases a picture still buffered for reference reordering.
	// It is repeatable: call until it returns nil.
	Flush() *Picture
	// Close releases the engine session. Safe to call on a session
	// whose Configure failed.
	Close()
}
