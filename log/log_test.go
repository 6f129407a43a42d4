package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	// Some sample logs from existing code.
	Infof("applied %d operations, state root %x", sampleInt, sampleBytes)
	Debugw("operation accepted", "kind", "transfer", "index", 7)
	Errorf("cannot commit write transaction: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestLevels(t *testing.T) {
	c := qt.New(t)
	buf := new(bytes.Buffer)
	logTestWriter = buf
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	Init(LogLevelWarn, logTestWriterName, nil)
	c.Assert(Level(), qt.Equals, LogLevelWarn)
	doLogs()
	out := buf.String()
	c.Assert(strings.Contains(out, "operation accepted"), qt.IsFalse)
	c.Assert(strings.Contains(out, "various types"), qt.IsTrue)
	c.Assert(strings.Contains(out, "cannot commit write transaction: some error"), qt.IsTrue)

	buf.Reset()
	Error(nil)
	c.Assert(buf.Len(), qt.Equals, 0)

	c.Assert(func() { Init("verbose", logTestWriterName, nil) }, qt.PanicMatches, `invalid log level: "verbose"`)
}

func TestErrorOutput(t *testing.T) {
	c := qt.New(t)
	logTestWriter = io.Discard
	errOut := new(bytes.Buffer)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	Init(LogLevelDebug, logTestWriterName, errOut)
	Infow("reserve audited", "reserve", "10")
	c.Assert(errOut.Len(), qt.Equals, 0)
	Errorw(errSample, "custody below reserve", "reserve", "10", "custody", "7")
	c.Assert(strings.Contains(errOut.String(), "custody below reserve"), qt.IsTrue)
	c.Assert(strings.Contains(errOut.String(), "some error"), qt.IsTrue)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
