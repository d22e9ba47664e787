package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdko-org/get2put/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Acquire is a single conditional upsert: a new session is inserted, an
// existing one is only updated when its last request is at least minInterval
// old. Postgres reports no affected row when the update condition fails.
func (s *PostgresStore) Acquire(ctx context.Context, id string, now time.Time, minInterval time.Duration) (bool, error) {
	sess := models.Session{ID: id, LastRequest: now, UpdatedAt: now}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_request": now,
			"updated_at":   now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{
				Column: clause.Column{Table: sess.TableName(), Name: "last_request"},
				Value:  now.Add(-minInterval),
			},
		}},
	}).Create(&sess)
	if result.Error != nil {
		return false, fmt.Errorf("session acquire failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *PostgresStore) LastRequest(ctx context.Context, id string) (time.Time, bool, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("session lookup failed: %w", err)
	}
	return sess.LastRequest, true, nil
}

func (s *PostgresStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("last_request < ?", cutoff).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session purge failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
