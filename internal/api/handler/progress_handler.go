package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProgressHandler 进度模块 HTTP 处理器
type ProgressHandler struct {
	progressSvc service.ProgressService
}

// NewProgressHandler 创建 ProgressHandler
func NewProgressHandler(progressSvc service.ProgressService) *ProgressHandler {
	return &ProgressHandler{progressSvc: progressSvc}
}

// ForThesis 单个论文项目的指导进度
// GET /api/v1/progress/theses/:id
func (h *ProgressHandler) ForThesis(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	record, err := h.progressSvc.ForThesis(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, record)
}

// Mine 学生自己的进度
// GET /api/v1/progress/mine
func (h *ProgressHandler) Mine(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	records, err := h.progressSvc.Mine(c.Request.Context(), studentID)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	response.OK(c, records)
}

// Export 导出学期进度报表
// GET /api/v1/progress/export?period_id=xxx
func (h *ProgressHandler) Export(c *gin.Context) {
	var req dto.ExportProgressRequest
	if !bindQuery(c, &req) {
		return
	}

	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	buf, filename, err := h.progressSvc.Export(c.Request.Context(), req.PeriodID, id.UserID, id.Role)
	if err != nil {
		h.handleProgressError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ProgressHandler) handleProgressError(c *gin.Context, err error) {
	if writeThesisError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrExportNoTheses):
		response.NotFound(c, 19001, "该学期暂无论文项目")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
