package storage

import (
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	SaveAction(rec *ActionRecord) error
	SaveCombat(rec *CombatRecord) error
	SaveEvent(rec *EventRecord) error

	// RecentCombats returns the newest resolved combats of a session, most
	// recent first.
	RecentCombats(sessionID string, limit int) ([]CombatRecord, error)
	// ActionsByPlayer returns a player's persisted actions, newest first.
	ActionsByPlayer(sessionID, playerID string, limit int) ([]ActionRecord, error)

	// PurgeExpiredActions deletes action records processed before the cutoff
	// and returns how many rows went away. The retention scanner calls this
	// periodically.
	PurgeExpiredActions(before time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository wraps a migrated database handle.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) SaveAction(rec *ActionRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) SaveCombat(rec *CombatRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) SaveEvent(rec *EventRecord) error {
	return r.db.Create(rec).Error
}

func (r *gormRepository) RecentCombats(sessionID string, limit int) ([]CombatRecord, error) {
	var out []CombatRecord
	err := r.db.Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormRepository) ActionsByPlayer(sessionID, playerID string, limit int) ([]ActionRecord, error) {
	var out []ActionRecord
	err := r.db.Where("session_id = ? AND player_id = ?", sessionID, playerID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormRepository) PurgeExpiredActions(before time.Time) (int64, error) {
	res := r.db.Unscoped().
		Where("processed_at < ?", before).
		Delete(&ActionRecord{})
	return res.RowsAffected, res.Error
}
