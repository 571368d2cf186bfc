package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite tests the log package
type LoggerTestSuite struct {
	suite.Suite
	originalLogger zerolog.Logger
	testOutput     *bytes.Buffer
}

// SetupTest runs before each test
func (s *LoggerTestSuite) SetupTest() {
	s.originalLogger = Logger
	s.testOutput = &bytes.Buffer{}
	s.Require().NoError(Setup(s.testOutput, FormatJSON, "debug"))
}

// TearDownTest runs after each test
func (s *LoggerTestSuite) TearDownTest() {
	Logger = s.originalLogger
}

func (s *LoggerTestSuite) lastLine() map[string]interface{} {
	lines := strings.Split(strings.TrimSpace(s.testOutput.String()), "\n")
	s.Require().NotEmpty(lines)

	var entry map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func (s *LoggerTestSuite) TestLevels() {
	Debug().Msg("debug test")
	Info().Msg("info test")
	Warn().Msg("warn test")
	Error().Msg("error test")

	output := s.testOutput.String()
	s.Contains(output, "debug test")
	s.Contains(output, "info test")
	s.Contains(output, "warn test")
	s.Contains(output, "error test")
}

func (s *LoggerTestSuite) TestLogWithFields() {
	Info().Str("server_url", "http://localhost:5000").Msg("configured")

	entry := s.lastLine()
	s.Equal("configured", entry["message"])
	s.Equal("http://localhost:5000", entry["server_url"])
	s.Equal("info", entry["level"])
}

func (s *LoggerTestSuite) TestSetupRejectsBadInput() {
	s.Error(Setup(s.testOutput, FormatJSON, "loud"))
	s.Error(Setup(s.testOutput, "xml", "info"))
}

func (s *LoggerTestSuite) TestSetupLevelFilters() {
	s.Require().NoError(Setup(s.testOutput, FormatJSON, "warn"))

	Info().Msg("hidden")
	Warn().Msg("visible")

	output := s.testOutput.String()
	s.NotContains(output, "hidden")
	s.Contains(output, "visible")
}

func (s *LoggerTestSuite) TestConsoleFormat() {
	s.Require().NoError(Setup(s.testOutput, FormatConsole, "info"))

	Info().Msg("console line")

	s.Contains(s.testOutput.String(), "console line")
	s.False(strings.HasPrefix(s.testOutput.String(), "{"))
}

func (s *LoggerTestSuite) TestComponent() {
	logger := Component("poller")
	logger.Info().Msg("tick")

	entry := s.lastLine()
	s.Equal("poller", entry["component"])
}

func (s *LoggerTestSuite) TestSetDebugMode() {
	s.Require().NoError(Setup(s.testOutput, FormatJSON, "info"))
	SetDebugMode()
	s.Equal(zerolog.DebugLevel, Logger.GetLevel())
}

func (s *LoggerTestSuite) TestLeveledFields() {
	leveled := NewLeveled(Logger)
	leveled.Warn("retrying request", "url", "http://x/counts", "attempt", 2)

	entry := s.lastLine()
	s.Equal("retrying request", entry["message"])
	s.Equal("http://x/counts", entry["url"])
	s.EqualValues(2, entry["attempt"])
}

func (s *LoggerTestSuite) TestLeveledErrorFields() {
	cause := &url.Error{Op: "Post", URL: "http://x/upload", Err: errors.New("connection refused")}
	NewLeveled(Logger).Error("request failed", "error", cause)

	entry := s.lastLine()
	s.Equal(`Post "http://x/upload": connection refused`, entry["error"])
}

func (s *LoggerTestSuite) TestLeveledOddFields() {
	NewLeveled(Logger).Error("odd", "key")

	entry := s.lastLine()
	s.Equal("key", entry["extra"])
}

func (s *LoggerTestSuite) TestConcurrentLogging() {
	s.Require().NoError(Setup(zerolog.SyncWriter(s.testOutput), FormatJSON, "info"))

	numGoroutines := 10
	done := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer func() { done <- true }()
			Info().Int("worker", id).Msg("concurrent log message")
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimSpace(s.testOutput.String()), "\n")
	s.Len(lines, numGoroutines)
}

// TestSuite runs the logger test suite
func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
