// Package nlog - dartrt logger, provides leveled, buffered, timestamped
// writing. The fixed-buffer line writer's copy/bounds discipline is
// adapted from aistore's cmn/nlog, generalized from aistore's
// rotation-oriented logger to the runtime's simpler in-memory ring
// usage; unlike the teacher's version, the buffer itself owns the
// Level-to-line-prefix mapping and the whole-line assembly, so
// nlog.go's emit path never touches woff/avail directly.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"io"
	"time"
)

// fixed is a reusable, non-growing line buffer: one format call fills
// it starting at woff, further writes past capacity are silently
// dropped rather than reallocating, since log lines here are bounded
// and a dropped trailing byte is preferable to an allocation on the
// hot path.
type fixed struct {
	buf  []byte
	woff int
}

// interface guard
var _ io.Writer = (*fixed)(nil)

func newFixed(size int) *fixed {
	return &fixed{buf: make([]byte, size)}
}

func (fb *fixed) Write(p []byte) (int, error) {
	n := copy(fb.buf[fb.woff:], p)
	fb.woff += n
	return len(p), nil // silent discard
}

func (fb *fixed) writeString(p string) {
	n := copy(fb.buf[fb.woff:], p)
	fb.woff += n
}

func (fb *fixed) writeByte(c byte) {
	if fb.avail() > 0 {
		fb.buf[fb.woff] = c
		fb.woff++
	}
}

func (fb *fixed) reset()     { fb.woff = 0 }
func (fb *fixed) avail() int { return cap(fb.buf) - fb.woff }
func (fb *fixed) bytes() []byte {
	return fb.buf[:fb.woff]
}

func (fb *fixed) eol() {
	if fb.woff == 0 || (fb.buf[fb.woff-1] != '\n' && fb.avail() > 0) {
		fb.buf[fb.woff] = '\n'
		fb.woff++
	}
}

// levelTag is the single-letter marker emitted for each Level, kept
// next to fixed since formatLine is the only caller.
func levelTag(l Level) byte {
	switch l {
	case LevelError:
		return 'E'
	case LevelWarn:
		return 'W'
	case LevelDebug:
		return 'D'
	case LevelTrace:
		return 'T'
	default:
		return 'I'
	}
}

// formatLine assembles one complete log line - timestamp, level tag,
// message, trailing newline - directly into the buffer, so nlog.go's
// emit path never assembles lines a field at a time.
func (fb *fixed) formatLine(ts time.Time, l Level, msg string) {
	fb.reset()
	fb.writeString(ts.Format("2006-01-02T15:04:05.000Z"))
	fb.writeByte(' ')
	fb.writeByte(levelTag(l))
	fb.writeByte(' ')
	fb.writeString(msg)
	fb.eol()
}
