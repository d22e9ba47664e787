package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger drops sessions that have been idle longer than the TTL.
type Purger struct {
	logger   *logrus.Logger
	store    Store
	ttl      time.Duration
	interval time.Duration
}

func NewPurger(logger *logrus.Logger, store Store, ttl, interval time.Duration) *Purger {
	return &Purger{
		logger:   logger,
		store:    store,
		ttl:      ttl,
		interval: interval,
	}
}

func (p *Purger) Start(ctx context.Context) {
	logEntry := p.logger.WithField("component", "session_purger")
	if p.interval <= 0 || p.ttl <= 0 {
		logEntry.WithFields(logrus.Fields{
			"interval": p.interval,
			"ttl":      p.ttl,
		}).Error("Session purger disabled: interval and ttl must be positive")
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	logEntry.Info("Starting session purger")

	for {
		select {
		case <-ticker.C:
			p.PurgeExpired(ctx, logEntry)
		case <-ctx.Done():
			logEntry.Info("Stopping session purger")
			return
		}
	}
}

func (p *Purger) PurgeExpired(ctx context.Context, log *logrus.Entry) int64 {
	log = log.WithField("operation", "session_purge")

	n, err := p.store.PurgeBefore(ctx, time.Now().Add(-p.ttl))
	if err != nil {
		log.WithError(err).Error("Session purge failed")
		return 0
	}
	if n > 0 {
		log.WithField("count", n).Info("Purged expired sessions")
	}
	return n
}
