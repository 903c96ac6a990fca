package update

import (
	"log"
	"os"
)

// Logger receives progress and skipped-line reports. *zap.SugaredLogger
// satisfies it.
type Logger interface {
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type stdLog struct {
	logger *log.Logger
}

var _ Logger = (*stdLog)(nil)

func (s *stdLog) Infof(format string, v ...interface{}) {}

func (s *stdLog) Warnf(format string, v ...interface{}) {
	s.logger.Printf("WARN "+format, v...)
}

func (s *stdLog) Errorf(format string, v ...interface{}) {
	s.logger.Printf("ERROR "+format, v...)
}

func newStdLog() Logger {
	return &stdLog{logger: log.New(os.Stderr, "", log.LstdFlags)}
}
