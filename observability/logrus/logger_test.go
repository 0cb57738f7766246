package logrus

import (
	"testing"

	"github.com/Swind/go-task-relay/core"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ForwardsLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)

	l := New(base)
	l.Debug("debug", core.F("loop", "main"))
	l.Info("info")
	l.Warn("warn", core.F("count", 3))
	l.Error("error", core.F("relay", "r"), core.F("count", 1))

	entries := hook.AllEntries()
	require.Len(t, entries, 4)

	assert.Equal(t, logrus.DebugLevel, entries[0].Level)
	assert.Equal(t, "main", entries[0].Data["loop"])

	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Data)

	assert.Equal(t, logrus.WarnLevel, entries[2].Level)
	assert.Equal(t, 3, entries[2].Data["count"])

	assert.Equal(t, logrus.ErrorLevel, entries[3].Level)
	assert.Equal(t, "error", entries[3].Message)
	assert.Equal(t, "r", entries[3].Data["relay"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.InfoLevel)

	l := New(base)
	l.Debug("hidden")
	l.Info("shown")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "shown", hook.LastEntry().Message)
}

func TestNew_NilUsesStandardLogger(t *testing.T) {
	l := New(nil)
	assert.Same(t, logrus.StandardLogger(), l.entry)
}
