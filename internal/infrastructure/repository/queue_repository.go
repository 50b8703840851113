package repository

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/opentill/terminal/internal/domain/entity"
	"github.com/opentill/terminal/internal/domain/enum"
	domainRepo "github.com/opentill/terminal/internal/domain/repository"
)

type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates the gorm-backed offline queue store.
func NewQueueRepository(db *gorm.DB) domainRepo.QueueStore {
	return &queueRepository{db: db}
}

func (r *queueRepository) Upsert(ctx context.Context, ref string, action enum.QueueAction, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.OfflineQueueEntry
		err := tx.First(&existing, "ref = ?", ref).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&entity.OfflineQueueEntry{
				Ref:     ref,
				Action:  action,
				Payload: string(body),
			}).Error
		case err != nil:
			return err
		default:
			// Supersede in place: the seq stays, so replay order still
			// reflects first submission.
			existing.Action = action
			existing.Payload = string(body)
			return tx.Save(&existing).Error
		}
	})
}

func (r *queueRepository) Get(ctx context.Context, ref string) (*entity.OfflineQueueEntry, error) {
	var entry entity.OfflineQueueEntry
	err := r.db.WithContext(ctx).First(&entry, "ref = ?", ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *queueRepository) All(ctx context.Context) ([]entity.OfflineQueueEntry, error) {
	var entries []entity.OfflineQueueEntry
	err := r.db.WithContext(ctx).Order("seq ASC").Find(&entries).Error
	return entries, err
}

func (r *queueRepository) Delete(ctx context.Context, ref string) error {
	return r.db.WithContext(ctx).Delete(&entity.OfflineQueueEntry{}, "ref = ?", ref).Error
}

func (r *queueRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.OfflineQueueEntry{}).Count(&count).Error
	return count, err
}

func (r *queueRepository) IsPending(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.OfflineQueueEntry{}).
		Where("ref = ?", ref).
		Count(&count).Error
	return count > 0, err
}
