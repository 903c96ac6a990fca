package stream

import (
	"log"
	"os"
)

// Logger receives the collector's diagnostics. *zap.SugaredLogger satisfies
// it.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type stdLog struct {
	logger *log.Logger
}

var _ Logger = (*stdLog)(nil)

// Infof is silent: the stdlib log package has no levels.
func (s *stdLog) Infof(format string, v ...interface{}) {}

// Warnf is silent: the stdlib log package has no levels.
func (s *stdLog) Warnf(format string, v ...interface{}) {}

func (s *stdLog) Errorf(format string, v ...interface{}) {
	s.logger.Printf(format, v...)
}

func newStdLog() Logger {
	return &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags)}
}
