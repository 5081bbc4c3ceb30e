package focuslog_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dianlight/focuslog"
)

type LevelSuite struct {
	suite.Suite
	originalLevel slog.Level
}

func (suite *LevelSuite) SetupTest() {
	suite.originalLevel = focuslog.GetLevel()
}

func (suite *LevelSuite) TearDownTest() {
	focuslog.SetLevel(suite.originalLevel)
}

func (suite *LevelSuite) TestSetAndGetLevel() {
	levels := []slog.Level{
		focuslog.LevelTrace,
		focuslog.LevelDebug,
		focuslog.LevelInfo,
		focuslog.LevelNotice,
		focuslog.LevelWarn,
		focuslog.LevelError,
		focuslog.LevelFatal,
	}

	for _, level := range levels {
		focuslog.SetLevel(level)
		suite.Equal(level, focuslog.GetLevel())
	}
}

func (suite *LevelSuite) TestSetLevelFromString() {
	testCases := []struct {
		input         string
		expectedLevel slog.Level
		shouldError   bool
	}{
		{"trace", focuslog.LevelTrace, false},
		{"debug", focuslog.LevelDebug, false},
		{"info", focuslog.LevelInfo, false},
		{"notice", focuslog.LevelNotice, false},
		{"warn", focuslog.LevelWarn, false},
		{"warning", focuslog.LevelWarn, false},
		{"error", focuslog.LevelError, false},
		{"fatal", focuslog.LevelFatal, false},
		{"critical", focuslog.LevelFatal, false},

		// Case-insensitive
		{"TRACE", focuslog.LevelTrace, false},
		{"Notice", focuslog.LevelNotice, false},
		{"Warning", focuslog.LevelWarn, false},
		{"CRITICAL", focuslog.LevelFatal, false},

		// With whitespace
		{"  trace  ", focuslog.LevelTrace, false},
		{"\tdebug\n", focuslog.LevelDebug, false},

		{"invalid", 0, true},
		{"", 0, true},
		{"tracee", 0, true},
	}

	for _, tc := range testCases {
		suite.Run(tc.input, func() {
			err := focuslog.SetLevelFromString(tc.input)

			if tc.shouldError {
				suite.Error(err)
				if tc.input == "" {
					suite.Contains(err.Error(), "log level cannot be empty")
				} else {
					suite.Contains(err.Error(), "invalid log level")
				}
			} else {
				suite.NoError(err)
				suite.Equal(tc.expectedLevel, focuslog.GetLevel())
			}
		})
	}
}

func (suite *LevelSuite) TestGetLevelString() {
	testCases := []struct {
		level          slog.Level
		expectedString string
	}{
		{focuslog.LevelTrace, "TRACE"},
		{focuslog.LevelDebug, "DEBUG"},
		{focuslog.LevelInfo, "INFO"},
		{focuslog.LevelNotice, "NOTICE"},
		{focuslog.LevelWarn, "WARN"},
		{focuslog.LevelError, "ERROR"},
		{focuslog.LevelFatal, "FATAL"},
	}

	for _, tc := range testCases {
		suite.Run(tc.expectedString, func() {
			focuslog.SetLevel(tc.level)
			suite.Equal(tc.expectedString, focuslog.GetLevelString())
		})
	}
}

func (suite *LevelSuite) TestCustomLevels() {
	suite.Equal(slog.Level(-8), focuslog.LevelTrace)
	suite.Equal(slog.Level(2), focuslog.LevelNotice)
	suite.Equal(slog.Level(12), focuslog.LevelFatal)
}

func TestLevelSuite(t *testing.T) {
	suite.Run(t, new(LevelSuite))
}
