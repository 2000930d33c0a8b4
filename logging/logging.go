package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger pairs the sugared logger with the level that controls it, so the
// level can be changed while the bot runs.
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

func New(level string, development bool) (*Logger, error) {
	atom := zap.NewAtomicLevel()
	if err := atom.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "unknown log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atom

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to build logger")
	}
	return &Logger{SugaredLogger: logger.Sugar(), level: atom}, nil
}

// Nop is used by tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

func (l *Logger) SetLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return errors.Wrapf(err, "unknown log level %q", level)
	}
	l.level.SetLevel(lvl)
	return nil
}

func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}
