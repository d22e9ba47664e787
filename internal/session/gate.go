package session

import (
	"context"
	"time"

	"github.com/sdko-org/get2put/internal/tunnel"
	"github.com/sirupsen/logrus"
)

// Gate throttles each session to one accepted request per MinInterval.
type Gate struct {
	store       Store
	minInterval time.Duration
	log         *logrus.Entry

	// Now is the clock used for comparisons and stored timestamps.
	Now func() time.Time
}

func NewGate(logger *logrus.Logger, store Store, minInterval time.Duration) *Gate {
	return &Gate{
		store:       store,
		minInterval: minInterval,
		log:         logger.WithField("component", "session_gate"),
		Now:         time.Now,
	}
}

// Check rejects the call with tunnel.ErrRateLimited when the session's last
// accepted request is younger than the interval. An accepted call records the
// current time in the same store operation. Store failures let the request
// through.
func (g *Gate) Check(ctx context.Context, id string) error {
	now := g.Now()
	log := g.log.WithField("session", id)

	ok, err := g.store.Acquire(ctx, id, now, g.minInterval)
	if err != nil {
		log.WithError(err).Warn("Session store failed, not throttling")
		return nil
	}
	if !ok {
		log.Debug("Session rate limited")
		return tunnel.ErrRateLimited
	}
	return nil
}
