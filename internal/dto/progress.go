package dto

import "thesis-guidance/backend/internal/progress"

// ── 进度模块 DTO ──

// ProgressResponse 论文指导进度（派生数据）
type ProgressResponse struct {
	ThesisID string       `json:"thesis_id"`
	Judul    string       `json:"judul"`
	Student  *UserBrief   `json:"student,omitempty"`
	Period   *PeriodBrief `json:"period,omitempty"`
	progress.Record
}

// ExportProgressRequest 导出进度报表
type ExportProgressRequest struct {
	PeriodID string `form:"period_id" binding:"required,uuid"`
}
