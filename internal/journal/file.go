package journal

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(Entry{Time: e.Time, Message: e.Message}.String() + "\n"), nil
}

// FileSink appends "[timestamp] message" lines to a text file.
type FileSink struct {
	file   *os.File
	logger *logrus.Logger
}

func OpenFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(lineFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return &FileSink{file: f, logger: logger}, nil
}

func (s *FileSink) Record(_ context.Context, e Entry) error {
	s.logger.WithTime(e.Time).Info(e.Message)
	return nil
}

func (s *FileSink) Close() error {
	return s.file.Close()
}
