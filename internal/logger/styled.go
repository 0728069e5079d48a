package logger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"

	"github.com/mineradorx/relay/theme"
)

// StyledLogger wraps slog.Logger with Theme-aware formatting
type StyledLogger struct {
	logger *slog.Logger
	Theme  *theme.Theme
}

func NewStyledLogger(logger *slog.Logger, theme *theme.Theme) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		Theme:  theme,
	}
}

// NewPlainStyledLogger wraps a bare slog logger with the default theme, mostly for tests
func NewPlainStyledLogger(logger *slog.Logger) *StyledLogger {
	return NewStyledLogger(logger, theme.Default())
}

func NewWithTheme(cfg *Config) (*slog.Logger, *StyledLogger, func(), error) {
	logger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)
	styledLogger := NewStyledLogger(logger, appTheme)

	return logger, styledLogger, cleanup, nil
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.logger.Error(msg, args...)
}

func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Counts}.Sprint("(", count, ")"))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) InfoWithService(msg string, service string, args ...any) {
	sl.logger.Info(sl.withService(msg, service), args...)
}

func (sl *StyledLogger) WarnWithService(msg string, service string, args ...any) {
	sl.logger.Warn(sl.withService(msg, service), args...)
}

func (sl *StyledLogger) ErrorWithService(msg string, service string, args ...any) {
	sl.logger.Error(sl.withService(msg, service), args...)
}

// InfoServiceBackend logs a service with its backend kind and model label, eg.
// "Service ready summarizer [local] mistral-7b.gguf"
func (sl *StyledLogger) InfoServiceBackend(msg, service, kind, model string, args ...any) {
	kindColour := sl.Theme.Local
	if kind == "cloud" {
		kindColour = sl.Theme.Cloud
	}
	styledMsg := fmt.Sprintf("%s %s %s %s", msg,
		pterm.Style{sl.Theme.Service}.Sprint(service),
		pterm.Style{kindColour}.Sprint("[", kind, "]"),
		pterm.Style{sl.Theme.Numbers}.Sprint(model))
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) withService(msg, service string) string {
	return fmt.Sprintf("%s %s", msg, pterm.Style{sl.Theme.Service}.Sprint(service))
}

func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

func (sl *StyledLogger) WithRequestID(requestID string) *StyledLogger {
	return sl.With("request_id", requestID)
}

func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		Theme:  sl.Theme,
	}
}

/**
 * LogContext separates what the operator sees in the terminal from what
 * lands in the log file. Prompts and backend diagnostics can be long, so
 * they go to DetailedArgs and only the file handler records them.
 */
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

func (sl *StyledLogger) InfoWithContext(msg string, service string, lc LogContext) {
	sl.logWithContext(slog.LevelInfo, msg, service, lc)
}

func (sl *StyledLogger) WarnWithContext(msg string, service string, lc LogContext) {
	sl.logWithContext(slog.LevelWarn, msg, service, lc)
}

func (sl *StyledLogger) ErrorWithContext(msg string, service string, lc LogContext) {
	sl.logWithContext(slog.LevelError, msg, service, lc)
}

func (sl *StyledLogger) logWithContext(level slog.Level, msg string, service string, lc LogContext) {
	sl.logger.Log(context.Background(), level, sl.withService(msg, service), lc.UserArgs...)

	if len(lc.DetailedArgs) == 0 {
		return
	}

	allArgs := make([]any, 0, len(lc.UserArgs)+len(lc.DetailedArgs)+2)
	allArgs = append(allArgs, "service", service)
	allArgs = append(allArgs, lc.UserArgs...)
	allArgs = append(allArgs, lc.DetailedArgs...)

	sl.logger.Log(WithDetailed(context.Background()), level, msg, allArgs...)
}
