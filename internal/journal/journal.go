package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const TimeLayout = "2006-01-02 15:04:05"

type Entry struct {
	Time    time.Time
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format(TimeLayout), e.Message)
}

// Sink is an append-only destination for journal entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// Journal fans entries out to its sinks. A nil *Journal is valid and
// discards everything. Sink errors are logged, never returned.
type Journal struct {
	sinks []Sink
	log   *logrus.Entry
	Now   func() time.Time
}

func New(logger *logrus.Logger, sinks ...Sink) *Journal {
	return &Journal{
		sinks: sinks,
		log:   logger.WithField("component", "journal"),
		Now:   time.Now,
	}
}

func (j *Journal) Printf(ctx context.Context, format string, args ...interface{}) {
	if j == nil || len(j.sinks) == 0 {
		return
	}
	e := Entry{Time: j.Now(), Message: fmt.Sprintf(format, args...)}
	for _, s := range j.sinks {
		if err := s.Record(ctx, e); err != nil {
			j.log.WithError(err).Warn("Failed to write journal entry")
		}
	}
}
