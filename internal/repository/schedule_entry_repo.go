package repository

import (
	"context"

	"gorm.io/gorm"

	"thesis-guidance/backend/internal/model"
)

// ScheduleEntryRepository 课表条目数据访问接口
type ScheduleEntryRepository interface {
	Create(ctx context.Context, entry *model.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.ScheduleEntry, error)
	ListByOwnerAndDay(ctx context.Context, ownerID string, dayOfWeek int) ([]model.ScheduleEntry, error)
	Update(ctx context.Context, entry *model.ScheduleEntry) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// ReplaceImported 在事务中全量替换所有者某学期的导入条目：先删除旧数据，再批量插入
	ReplaceImported(ctx context.Context, ownerID, semester string, entries []model.ScheduleEntry) error
}

type scheduleEntryRepo struct {
	db *gorm.DB
}

// NewScheduleEntryRepo 创建 ScheduleEntryRepository 实例
func NewScheduleEntryRepo(db *gorm.DB) ScheduleEntryRepository {
	return &scheduleEntryRepo{db: db}
}

func (r *scheduleEntryRepo) Create(ctx context.Context, entry *model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *scheduleEntryRepo) GetByID(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("schedule_entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("day_of_week ASC, start_time ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListByOwnerAndDay(ctx context.Context, ownerID string, dayOfWeek int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND day_of_week = ?", ownerID, dayOfWeek).
		Order("start_time ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) Update(ctx context.Context, entry *model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *scheduleEntryRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("schedule_entry_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *scheduleEntryRepo) ReplaceImported(ctx context.Context, ownerID, semester string, entries []model.ScheduleEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 硬删除旧的导入条目（替换场景，无需软删除审计）；手工录入的条目保留
		if err := tx.Unscoped().
			Where("owner_id = ? AND semester = ? AND source = ?", ownerID, semester, model.ScheduleSourceICS).
			Delete(&model.ScheduleEntry{}).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
