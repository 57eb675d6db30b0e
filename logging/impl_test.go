package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

// assertLogMatches checks the level, file and message of the next line in `actual` while ignoring
// the exact time and line number.
func assertLogMatches(t *testing.T, actual *bytes.Buffer, expected string) {
	t.Helper()

	output, err := actual.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)

	actualParts := strings.Split(strings.TrimSuffix(output, "\n"), "\t")
	expectedParts := strings.Split(expected, "\t")
	test.That(t, len(actualParts), test.ShouldEqual, len(expectedParts))
	// Use the length of the first string as a weak verification that it looks like a date.
	test.That(t, len(actualParts[0]), test.ShouldEqual, len(expectedParts[0]))
	test.That(t, actualParts[1], test.ShouldEqual, expectedParts[1])

	actualFilename, _, found := strings.Cut(actualParts[2], ":")
	test.That(t, found, test.ShouldBeTrue)
	expectedFilename, _, _ := strings.Cut(expectedParts[2], ":")
	test.That(t, actualFilename, test.ShouldEqual, expectedFilename)

	test.That(t, actualParts[3:], test.ShouldResemble, expectedParts[3:])
}

func TestConsoleOutputFormat(t *testing.T) {
	notStdout := &bytes.Buffer{}
	logger := newImpl("", DEBUG, true, NewWriterAppender(notStdout))

	logger.Info("impl Info log")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:12:09.459Z	INFO	logging/impl_test.go:40	impl Info log`)

	logger.Infof("impl %s log", "infof")
	assertLogMatches(t, notStdout,
		`2023-10-30T09:45:20.764Z	INFO	logging/impl_test.go:44	impl infof log`)

	logger.Infow("impl logw", "key", "value")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806Z	INFO	logging/impl_test.go:48	impl logw	{"key": "value"}`)

	logger.Warnw("unpaired", "lonely")
	assertLogMatches(t, notStdout,
		`2023-10-30T13:19:45.806Z	WARN	logging/impl_test.go:52	unpaired	{"lonely": "unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(WARN)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Errorf("kept %d", 2)
	test.That(t, observed.Len(), test.ShouldEqual, 2)
	test.That(t, observed.All()[1].Message, test.ShouldEqual, "kept 2")

	sub := logger.Sublogger("pipeline")
	test.That(t, sub.GetLevel(), test.ShouldEqual, WARN)
	sub.SetLevel(DEBUG)
	sub.Debugw("frame", "outcome", "tracked")
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	entries := observed.FilterMessage("frame").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "pipeline")
	test.That(t, entries[0].ContextMap()["outcome"], test.ShouldEqual, "tracked")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"error"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, ERROR)
	out, err := WARN.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"warn"`)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagpose.log")
	appender, closer := NewFileAppender(path, 1, 1)
	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.Infow("hello", "frame", 3)
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "hello")
	test.That(t, string(contents), test.ShouldContainSubstring, `"frame": 3`)
}

func TestWithFields(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	loop := logger.Sublogger("loop").WithFields("camera", 1)
	frame := loop.WithFields("frame", 7)

	frame.Warnw("marker detection failed", "error", "timeout")
	loop.Info("stopping")
	logger.Info("unscoped")

	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 3)
	test.That(t, entries[0].LoggerName, test.ShouldEqual, "loop")
	test.That(t, entries[0].ContextMap(), test.ShouldResemble, map[string]interface{}{
		"camera": int64(1), "frame": int64(7), "error": "timeout",
	})
	test.That(t, entries[1].ContextMap(), test.ShouldResemble, map[string]interface{}{"camera": int64(1)})
	test.That(t, entries[2].ContextMap(), test.ShouldBeEmpty)

	// field loggers share their parent's level
	loop.SetLevel(ERROR)
	frame.Warn("dropped")
	test.That(t, observed.Len(), test.ShouldEqual, 3)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
}
