package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, verboseOn bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseOn)
	t.Cleanup(func() {
		SetVerbose(false)
		SetTimestamps(false)
		SetOutput(os.Stderr)
		now = time.Now
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func(string, ...any)
		want string
	}{
		{"debug", Debug, "[DEBUG] retrieved 12 passages\n"},
		{"info", Info, "[INFO] retrieved 12 passages\n"},
		{"warn", Warn, "[WARN] retrieved 12 passages\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log("retrieved %d passages", 12)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestQuietWhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("a")
	Info("b")
	Warn("c")
	Section("d")

	assert.Empty(t, buf.String())
}

func TestSection(t *testing.T) {
	buf := capture(t, true)

	Section("ingest")

	assert.Equal(t, "\n=== ingest ===\n", buf.String())
}

func TestTimestamps(t *testing.T) {
	buf := capture(t, true)
	now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.Local) }
	SetTimestamps(true)

	Info("http: GET /health 200 0ms")
	Section("watch")

	assert.Equal(t, "2026-03-04T05:06:07.008 [INFO] http: GET /health 200 0ms\n"+
		"\n2026-03-04T05:06:07.008 === watch ===\n", buf.String())
}

func TestFormatVerbsInArgsAreNotExpanded(t *testing.T) {
	buf := capture(t, true)

	Warn("rejected %s", "100%s.pdf")

	assert.Equal(t, "[WARN] rejected 100%s.pdf\n", buf.String())
}
