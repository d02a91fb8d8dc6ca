package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/workflow"
	pkgerrors "thesis-guidance/backend/pkg/errors"
	"thesis-guidance/backend/pkg/timeutil"
)

// SessionFilter 会话列表过滤条件
type SessionFilter struct {
	StudentID string
	AdvisorID string
	ThesisID  string
	Status    string
}

// GuidanceSessionRepository 指导会话数据访问接口
//
// 会话状态变化与给对方的通知在同一事务中写入
type GuidanceSessionRepository interface {
	// Create 创建会话并写入通知；同一导师同一时刻已有活跃会话时返回 gorm.ErrDuplicatedKey
	Create(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error
	GetByID(ctx context.Context, id string) (*model.GuidanceSession, error)
	List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.GuidanceSession, int64, error)
	// ListActiveByAdvisorOnDate 导师某日占用时间的会话（PENDING / OFFERED / APPROVED）
	ListActiveByAdvisorOnDate(ctx context.Context, advisorID string, date time.Time) ([]model.GuidanceSession, error)
	// ListActiveByStudentOnDate 学生某日占用时间的会话
	ListActiveByStudentOnDate(ctx context.Context, studentID string, date time.Time) ([]model.GuidanceSession, error)
	// ListCompletedByTheses 返回若干论文下全部 COMPLETED 会话
	ListCompletedByTheses(ctx context.Context, thesisIDs []string) ([]model.GuidanceSession, error)
	// UpdateStatus 以版本号为条件更新状态并写入通知；版本不匹配返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error
	// AddNote 追加笔记并写入通知
	AddNote(ctx context.Context, note *model.SessionNote, notice *model.Notification) error
	ListNotes(ctx context.Context, sessionID string) ([]model.SessionNote, error)
}

type guidanceSessionRepo struct {
	db *gorm.DB
}

// NewGuidanceSessionRepo 创建 GuidanceSessionRepository 实例
func NewGuidanceSessionRepo(db *gorm.DB) GuidanceSessionRepository {
	return &guidanceSessionRepo{db: db}
}

func createNotice(tx *gorm.DB, notice *model.Notification) error {
	if notice == nil {
		return nil
	}
	return tx.Create(notice).Error
}

func (r *guidanceSessionRepo) Create(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Thesis", "Student", "Advisor", "Notes").Create(session).Error; err != nil {
			return err
		}
		if notice != nil {
			notice.RelatedID = &session.SessionID
		}
		return createNotice(tx, notice)
	})
}

func (r *guidanceSessionRepo) GetByID(ctx context.Context, id string) (*model.GuidanceSession, error) {
	var session model.GuidanceSession
	err := r.db.WithContext(ctx).
		Preload("Thesis").
		Preload("Student").
		Preload("Advisor").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *guidanceSessionRepo) List(ctx context.Context, filter SessionFilter, offset, limit int) ([]model.GuidanceSession, int64, error) {
	var sessions []model.GuidanceSession
	var total int64

	db := r.db.WithContext(ctx).Model(&model.GuidanceSession{})
	if filter.StudentID != "" {
		db = db.Where("student_id = ?", filter.StudentID)
	}
	if filter.AdvisorID != "" {
		db = db.Where("advisor_id = ?", filter.AdvisorID)
	}
	if filter.ThesisID != "" {
		db = db.Where("thesis_id = ?", filter.ThesisID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Thesis").Preload("Student").Preload("Advisor").
		Offset(offset).Limit(limit).
		Order("scheduled_date DESC, start_time DESC").
		Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

func (r *guidanceSessionRepo) ListActiveByAdvisorOnDate(ctx context.Context, advisorID string, date time.Time) ([]model.GuidanceSession, error) {
	var sessions []model.GuidanceSession
	err := r.db.WithContext(ctx).
		Where("advisor_id = ? AND scheduled_date = ? AND status IN ?", advisorID, date.Format(timeutil.DateLayout), workflow.ActiveStatuses()).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *guidanceSessionRepo) ListActiveByStudentOnDate(ctx context.Context, studentID string, date time.Time) ([]model.GuidanceSession, error) {
	var sessions []model.GuidanceSession
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND scheduled_date = ? AND status IN ?", studentID, date.Format(timeutil.DateLayout), workflow.ActiveStatuses()).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *guidanceSessionRepo) ListCompletedByTheses(ctx context.Context, thesisIDs []string) ([]model.GuidanceSession, error) {
	var sessions []model.GuidanceSession
	if len(thesisIDs) == 0 {
		return sessions, nil
	}
	err := r.db.WithContext(ctx).
		Where("thesis_id IN ? AND status = ?", thesisIDs, string(workflow.StatusCompleted)).
		Order("scheduled_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *guidanceSessionRepo) UpdateStatus(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error {
	oldVersion := session.Version
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.GuidanceSession{}).
			Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
			Updates(map[string]interface{}{
				"status":        session.Status,
				"status_reason": session.StatusReason,
				"decided_at":    session.DecidedAt,
				"completed_at":  session.CompletedAt,
				"updated_by":    session.UpdatedBy,
				"version":       oldVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}
		if err := createNotice(tx, notice); err != nil {
			return err
		}
		session.Version = oldVersion + 1
		return nil
	})
}

func (r *guidanceSessionRepo) AddNote(ctx context.Context, note *model.SessionNote, notice *model.Notification) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Advisor").Create(note).Error; err != nil {
			return err
		}
		return createNotice(tx, notice)
	})
}

func (r *guidanceSessionRepo) ListNotes(ctx context.Context, sessionID string) ([]model.SessionNote, error) {
	var notes []model.SessionNote
	err := r.db.WithContext(ctx).
		Preload("Advisor").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&notes).Error
	return notes, err
}
