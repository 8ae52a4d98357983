package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Init installs the global zerolog logger and returns it
func Init(app, level, format string) zerolog.Logger {
	return InitWriter(os.Stdout, app, level, format)
}

// InitWriter is Init with an explicit sink
func InitWriter(out io.Writer, app, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = out
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}

// GormLogger adapts zerolog to gorm's logger interface
type GormLogger struct {
	Logger        zerolog.Logger
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// NewGormLogger builds a gorm logger writing SQL traces at debug level
func NewGormLogger(logger zerolog.Logger, quiet bool) *GormLogger {
	level := gormlogger.Warn
	if quiet {
		level = gormlogger.Silent
	} else if logger.GetLevel() <= zerolog.DebugLevel {
		level = gormlogger.Info
	}
	return &GormLogger{Logger: logger, Level: level, SlowThreshold: 200 * time.Millisecond}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.Level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Info {
		l.Logger.Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Warn {
		l.Logger.Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Error {
		l.Logger.Error().Msgf(msg, args...)
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.Level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.Logger.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("gorm query failed")
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.Level >= gormlogger.Warn:
		sql, rows := fc()
		l.Logger.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("slow query")
	case l.Level >= gormlogger.Info:
		sql, rows := fc()
		l.Logger.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("gorm query")
	}
}
