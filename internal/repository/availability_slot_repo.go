package repository

import (
	"context"

	"gorm.io/gorm"

	"thesis-guidance/backend/internal/model"
)

// AvailabilitySlotRepository 导师可用时段数据访问接口
type AvailabilitySlotRepository interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	GetByID(ctx context.Context, id string) (*model.AvailabilitySlot, error)
	ListByAdvisor(ctx context.Context, advisorID string, activeOnly bool) ([]model.AvailabilitySlot, error)
	Update(ctx context.Context, slot *model.AvailabilitySlot) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type availabilitySlotRepo struct {
	db *gorm.DB
}

// NewAvailabilitySlotRepo 创建 AvailabilitySlotRepository 实例
func NewAvailabilitySlotRepo(db *gorm.DB) AvailabilitySlotRepository {
	return &availabilitySlotRepo{db: db}
}

func (r *availabilitySlotRepo) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *availabilitySlotRepo) GetByID(ctx context.Context, id string) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	err := r.db.WithContext(ctx).
		Where("availability_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *availabilitySlotRepo) ListByAdvisor(ctx context.Context, advisorID string, activeOnly bool) ([]model.AvailabilitySlot, error) {
	var slots []model.AvailabilitySlot
	db := r.db.WithContext(ctx).Where("advisor_id = ?", advisorID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("repeat_type DESC, day_of_week ASC, specific_date ASC, start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *availabilitySlotRepo) Update(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.db.WithContext(ctx).Save(slot).Error
}

func (r *availabilitySlotRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.AvailabilitySlot{}).
		Where("availability_slot_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
