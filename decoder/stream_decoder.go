// Package decoder drives a single decoding-engine session across a
// delimited elementary stream and aggregates the outcome.
package decoder

import (
	"errors"
	"fmt"
	"time"

	"github.com/ugparu/godec"
	"github.com/ugparu/godec/nalu"
	"github.com/ugparu/godec/utils/lifecycle"
	"github.com/ugparu/godec/utils/logger"
)

// PictureFunc receives each completed picture, in the order the engine
// reports them (presentation order, not necessarily submission order).
// The picture is borrowed and only valid until the controller's next
// engine call; retain it by copying (see frame/yuv).
type PictureFunc func(pic *godec.Picture)

// Result aggregates one full decode session.
type Result struct {
	Pictures     int  // Completed pictures emitted, including flushed ones.
	Submissions  int  // Coded units submitted to the engine.
	DecodeErrors int  // Units the engine rejected.
	Truncated    bool // A dangling trailing fragment was skipped.
	Complete     bool // The whole span sequence was consumed and drained.
}

// InitError is fatal: engine configuration failed, so no submission was
// attempted and the session produced no output.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize decoding session: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ErrDeadlineExceeded aborts a session whose wall-clock budget is spent.
var ErrDeadlineExceeded = errors.New("decode deadline exceeded")

// Option configures a StreamDecoder.
type Option func(*StreamDecoder)

// WithDeadline bounds total wall-clock time across the whole span
// sequence. The budget is checked between submissions only: a
// submission already in flight is never interrupted.
func WithDeadline(d time.Duration) Option {
	return func(dec *StreamDecoder) {
		dec.deadline = d
	}
}

// StreamDecoder decodes byte streams, one engine session per call. The
// decoder itself holds no session state, so a single StreamDecoder may
// be reused across streams; each Decode call is synchronous and owns
// its engine exclusively.
type StreamDecoder struct {
	newEngine func() godec.Engine
	cfg       godec.Config
	deadline  time.Duration
}

// New creates a stream decoder that obtains a fresh engine from
// newEngine for every Decode call and configures it with cfg.
func New(cfg godec.Config, newEngine func() godec.Engine, opts ...Option) *StreamDecoder {
	dec := &StreamDecoder{
		newEngine: newEngine,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(dec)
	}
	return dec
}

// String returns a string representation of the stream decoder.
func (dec *StreamDecoder) String() string {
	return fmt.Sprintf("STREAM_DECODER cfg=%+v", dec.cfg)
}

// session owns the engine for one Decode call. Its lifecycle manager
// guarantees Configure runs at most once and Close exactly once, on
// every exit path.
type session struct {
	engine godec.Engine
}

func (*session) String() string {
	return "DECODE_SESSION"
}

func (s *session) Close_() {
	s.engine.Close()
}

// Decode delimits stream into coded units, submits each unit to a fresh
// engine session, and emits completed pictures through onPicture. Unit
// decode failures are counted and logged but never abort the session:
// the engine is expected to resynchronize on later units under the
// configured concealment policy. Fatal errors (configuration failure,
// deadline) abort straight to teardown.
func (dec *StreamDecoder) Decode(stream []byte, onPicture PictureFunc) (*Result, error) {
	res := &Result{}

	sess := &session{engine: dec.newEngine()}
	mgr := lifecycle.NewManager(sess)
	defer mgr.Close()

	if err := mgr.Start(func(s *session) error { return s.engine.Configure(dec.cfg) }); err != nil {
		logger.Errorf(dec, "Failed to configure decoding session: %v", err)
		return res, &InitError{Err: err}
	}

	var deadline time.Time
	if dec.deadline > 0 {
		deadline = time.Now().Add(dec.deadline)
	}

	emit := func(pic *godec.Picture) {
		res.Pictures++
		logger.Debugf(dec, "Picture ready: %dx%d", pic.Width, pic.Height)
		if onPicture != nil {
			onPicture(pic)
		}
	}

	sc := nalu.NewScanner(stream)
	sp, ok := sc.Next()
	for ok {
		// Lookahead so the trailing-fragment policy below knows it is
		// looking at the last span.
		next, more := sc.Next()

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			logger.Warningf(dec, "Aborting after %d submissions: %v", res.Submissions, ErrDeadlineExceeded)
			return res, ErrDeadlineExceeded
		}

		unit := sp.Bytes(stream)
		if !more && (sp.Length < nalu.MinUnitSize || len(nalu.Payload(unit)) == 0) {
			logger.Warningf(dec, "Skipping truncated trailing fragment of %d bytes", sp.Length)
			res.Truncated = true
			break
		}

		st, pic := sess.engine.Submit(unit)
		res.Submissions++
		switch {
		case !st.Ok():
			res.DecodeErrors++
			logger.Warningf(dec, "Unit type %d at offset %d: %v", nalu.UnitType(unit), sp.Offset, st)
		case pic != nil:
			emit(pic)
		default:
			logger.Tracef(dec, "Unit type %d consumed, no picture yet", nalu.UnitType(unit))
		}

		sp, ok = next, more
	}

	// Engines with reference-frame delay hold back trailing pictures
	// until explicitly flushed.
	for pic := sess.engine.Flush(); pic != nil; pic = sess.engine.Flush() {
		emit(pic)
	}

	res.Complete = true
	logger.Infof(dec, "Stream decoded: %d pictures, %d units, %d errors", res.Pictures, res.Submissions, res.DecodeErrors)
	return res, nil
}
