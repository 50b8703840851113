package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
)

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates the gorm-backed record store.
func NewRecordRepository(db *gorm.DB) domainRepo.RecordStore {
	return &recordRepository{db: db}
}

func (r *recordRepository) Get(ctx context.Context, kind enum.RecordKind, key string, out any) (bool, error) {
	var rec entity.Record
	err := r.db.WithContext(ctx).First(&rec, "kind = ? AND key = ?", string(kind), key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal([]byte(rec.Payload), out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *recordRepository) Put(ctx context.Context, kind enum.RecordKind, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	rec := entity.Record{
		Kind:      string(kind),
		Key:       key,
		Payload:   string(payload),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&rec).Error
}

func (r *recordRepository) Remove(ctx context.Context, kind enum.RecordKind, key string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.Record{}, "kind = ? AND key = ?", string(kind), key).Error
}

func (r *recordRepository) RemoveAll(ctx context.Context, kind enum.RecordKind) error {
	return r.db.WithContext(ctx).Delete(&entity.Record{}, "kind = ?", string(kind)).Error
}

func (r *recordRepository) List(ctx context.Context, kind enum.RecordKind) ([]entity.Record, error) {
	var recs []entity.Record
	err := r.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order("updated_at DESC").
		Find(&recs).Error
	return recs, err
}

func (r *recordRepository) Count(ctx context.Context, kind enum.RecordKind) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Record{}).
		Where("kind = ?", string(kind)).
		Count(&count).Error
	return count, err
}
