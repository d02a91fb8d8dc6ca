package repository

import (
	"context"

	"gorm.io/gorm"

	"thesis-guidance/backend/internal/model"
)

// ThesisFilter 论文列表过滤条件
type ThesisFilter struct {
	PeriodID  string
	StudentID string
	AdvisorID string
}

// ThesisRepository 论文项目数据访问接口
type ThesisRepository interface {
	// Create 在事务中创建论文及其导师关联
	Create(ctx context.Context, thesis *model.ThesisProject, advisorIDs []string) error
	GetByID(ctx context.Context, id string) (*model.ThesisProject, error)
	List(ctx context.Context, filter ThesisFilter, offset, limit int) ([]model.ThesisProject, int64, error)
	// Update 更新论文字段；advisorIDs 非 nil 时同时替换导师关联
	Update(ctx context.Context, thesis *model.ThesisProject, advisorIDs []string) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type thesisRepo struct {
	db *gorm.DB
}

// NewThesisRepo 创建 ThesisRepository 实例
func NewThesisRepo(db *gorm.DB) ThesisRepository {
	return &thesisRepo{db: db}
}

func replaceAdvisors(tx *gorm.DB, thesisID string, advisorIDs []string) error {
	if err := tx.Where("thesis_id = ?", thesisID).Delete(&model.ThesisAdvisor{}).Error; err != nil {
		return err
	}
	links := make([]model.ThesisAdvisor, 0, len(advisorIDs))
	for _, id := range advisorIDs {
		links = append(links, model.ThesisAdvisor{ThesisID: thesisID, AdvisorID: id})
	}
	if len(links) == 0 {
		return nil
	}
	return tx.Create(&links).Error
}

func (r *thesisRepo) Create(ctx context.Context, thesis *model.ThesisProject, advisorIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Advisors", "Period", "Student").Create(thesis).Error; err != nil {
			return err
		}
		return replaceAdvisors(tx, thesis.ThesisID, advisorIDs)
	})
}

func (r *thesisRepo) GetByID(ctx context.Context, id string) (*model.ThesisProject, error) {
	var thesis model.ThesisProject
	err := r.db.WithContext(ctx).
		Preload("Period").
		Preload("Student").
		Preload("Advisors").
		Where("thesis_id = ?", id).
		First(&thesis).Error
	if err != nil {
		return nil, err
	}
	return &thesis, nil
}

func (r *thesisRepo) List(ctx context.Context, filter ThesisFilter, offset, limit int) ([]model.ThesisProject, int64, error) {
	var theses []model.ThesisProject
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ThesisProject{})
	if filter.PeriodID != "" {
		db = db.Where("thesis_projects.period_id = ?", filter.PeriodID)
	}
	if filter.StudentID != "" {
		db = db.Where("thesis_projects.student_id = ?", filter.StudentID)
	}
	if filter.AdvisorID != "" {
		db = db.Where("EXISTS (SELECT 1 FROM thesis_advisors ta WHERE ta.thesis_id = thesis_projects.thesis_id AND ta.advisor_id = ?)", filter.AdvisorID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := db.Preload("Period").Preload("Student").Preload("Advisors").
		Order("thesis_projects.created_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&theses).Error; err != nil {
		return nil, 0, err
	}
	return theses, total, nil
}

func (r *thesisRepo) Update(ctx context.Context, thesis *model.ThesisProject, advisorIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ThesisProject{}).
			Where("thesis_id = ?", thesis.ThesisID).
			Updates(map[string]interface{}{
				"judul":      thesis.Judul,
				"tipe":       thesis.Tipe,
				"period_id":  thesis.PeriodID,
				"student_id": thesis.StudentID,
				"updated_by": thesis.UpdatedBy,
				"version":    gorm.Expr("version + 1"),
			}).Error; err != nil {
			return err
		}
		if advisorIDs == nil {
			return nil
		}
		return replaceAdvisors(tx, thesis.ThesisID, advisorIDs)
	})
}

func (r *thesisRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ThesisProject{}).
		Where("thesis_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
