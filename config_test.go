package focuslog_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"gitlab.com/tozd/go/errors"

	"github.com/dianlight/focuslog"
)

type ConfigSuite struct {
	suite.Suite
}

func (suite *ConfigSuite) SetupTest() {
	focuslog.ResetForTest()
	for _, key := range []string{"IS_PROD", "LOG_LEVEL", "DEV_TRACEBACK_STYLE", "LOGGER_HIDE_SENSITIVE", "SENTRY_DSN", "SENTRY_ENVIRONMENT"} {
		suite.T().Setenv(key, "")
		suite.Require().NoError(os.Unsetenv(key))
	}
}

func (suite *ConfigSuite) TearDownTest() {
	focuslog.ResetForTest()
}

func (suite *ConfigSuite) TestMissingIsProd() {
	err := focuslog.Init()
	suite.Require().Error(err)
	suite.True(errors.Is(err, focuslog.ErrMissingEnvironment))
	suite.Contains(err.Error(), "IS_PROD")

	suite.Panics(func() { focuslog.MustInit() })
}

func (suite *ConfigSuite) TestEmptyIsProd() {
	suite.T().Setenv("IS_PROD", "")

	err := focuslog.Init()
	suite.Require().Error(err)
	suite.True(errors.Is(err, focuslog.ErrMissingEnvironment))
}

func (suite *ConfigSuite) TestInitWithConfigRequiresIsProd() {
	err := focuslog.InitWithConfig(focuslog.Config{})
	suite.True(errors.Is(err, focuslog.ErrMissingEnvironment))
}

func (suite *ConfigSuite) TestDefaults() {
	suite.T().Setenv("IS_PROD", "false")

	cfg, err := focuslog.LoadConfig()
	suite.Require().NoError(err)
	suite.False(cfg.Production())
	suite.Equal(focuslog.LevelInfo, cfg.Level())
	suite.Equal(focuslog.StyleFocused, cfg.Style())
	suite.False(cfg.HideSensitive)
	suite.Empty(cfg.SentryDSN)
	suite.Equal("production", cfg.SentryEnvironment)
}

func (suite *ConfigSuite) TestReadsEnvironment() {
	suite.T().Setenv("IS_PROD", "TRUE")
	suite.T().Setenv("LOG_LEVEL", "warning")
	suite.T().Setenv("DEV_TRACEBACK_STYLE", "rich")
	suite.T().Setenv("LOGGER_HIDE_SENSITIVE", "true")

	cfg, err := focuslog.LoadConfig()
	suite.Require().NoError(err)
	suite.True(cfg.Production())
	suite.Equal(focuslog.LevelWarn, cfg.Level())
	suite.Equal(focuslog.StyleRich, cfg.Style())
	suite.True(cfg.HideSensitive)
}

func (suite *ConfigSuite) TestUnknownLevelFallsBackToInfo() {
	cfg := focuslog.Config{IsProd: "false", LogLevel: "verbose"}
	suite.Equal(focuslog.LevelInfo, cfg.Level())

	cfg.LogLevel = "TRACE"
	suite.Equal(focuslog.LevelTrace, cfg.Level())
}

func (suite *ConfigSuite) TestCriticalLevel() {
	suite.T().Setenv("IS_PROD", "false")
	suite.T().Setenv("LOG_LEVEL", "CRITICAL")

	cfg, err := focuslog.LoadConfig()
	suite.Require().NoError(err)
	suite.Equal(focuslog.LevelFatal, cfg.Level())
}

func (suite *ConfigSuite) TestParseTracebackStyle() {
	testCases := []struct {
		input    string
		expected focuslog.TracebackStyle
	}{
		{"focused", focuslog.StyleFocused},
		{"rich", focuslog.StyleRich},
		{"RICH", focuslog.StyleRich},
		{" Rich ", focuslog.StyleRich},
		{"fancy", focuslog.StyleFocused},
		{"", focuslog.StyleFocused},
	}

	for _, tc := range testCases {
		suite.Equal(tc.expected, focuslog.ParseTracebackStyle(tc.input), tc.input)
	}
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}
