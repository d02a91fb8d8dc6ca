package repository

import (
	"context"

	"gorm.io/gorm"

	"thesis-guidance/backend/internal/model"
)

// AcademicPeriodRepository 学期数据访问接口
type AcademicPeriodRepository interface {
	Create(ctx context.Context, period *model.AcademicPeriod) error
	GetByID(ctx context.Context, id string) (*model.AcademicPeriod, error)
	GetCurrent(ctx context.Context) (*model.AcademicPeriod, error)
	List(ctx context.Context) ([]model.AcademicPeriod, error)
	Update(ctx context.Context, period *model.AcademicPeriod) error
	Delete(ctx context.Context, id string, deletedBy string) error
	// Activate 在事务中清除其它学期的激活状态并激活指定学期
	Activate(ctx context.Context, id string, updatedBy string) error
}

type academicPeriodRepo struct {
	db *gorm.DB
}

// NewAcademicPeriodRepo 创建 AcademicPeriodRepository 实例
func NewAcademicPeriodRepo(db *gorm.DB) AcademicPeriodRepository {
	return &academicPeriodRepo{db: db}
}

func (r *academicPeriodRepo) Create(ctx context.Context, period *model.AcademicPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *academicPeriodRepo) GetByID(ctx context.Context, id string) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	err := r.db.WithContext(ctx).
		Where("period_id = ?", id).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *academicPeriodRepo) GetCurrent(ctx context.Context) (*model.AcademicPeriod, error) {
	var period model.AcademicPeriod
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *academicPeriodRepo) List(ctx context.Context) ([]model.AcademicPeriod, error) {
	var periods []model.AcademicPeriod
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&periods).Error
	return periods, err
}

func (r *academicPeriodRepo) Update(ctx context.Context, period *model.AcademicPeriod) error {
	return r.db.WithContext(ctx).Save(period).Error
}

func (r *academicPeriodRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.AcademicPeriod{}).
		Where("period_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
			"is_active":  false,
		}).Error
}

func (r *academicPeriodRepo) Activate(ctx context.Context, id string, updatedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先清除，避免触发 uq_academic_periods_active
		if err := tx.Model(&model.AcademicPeriod{}).
			Where("is_active = ? AND period_id <> ?", true, id).
			Update("is_active", false).Error; err != nil {
			return err
		}
		result := tx.Model(&model.AcademicPeriod{}).
			Where("period_id = ?", id).
			Updates(map[string]interface{}{
				"is_active":  true,
				"updated_by": updatedBy,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
