package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/pkg/response"
)

// ScheduleHandler 课表模块 HTTP 处理器
// 条目归属当前用户；导师录入授课，学生录入上课
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// ListMySchedule 当前用户的课表
// GET /api/v1/schedules
func (h *ScheduleHandler) ListMySchedule(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entries, err := h.scheduleSvc.List(c.Request.Context(), userID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, entries)
}

// CreateEntry 新增课表条目（冲突时 409）
// POST /api/v1/schedules
func (h *ScheduleHandler) CreateEntry(c *gin.Context) {
	var req dto.ScheduleEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	entry, err := h.scheduleSvc.Create(c.Request.Context(), id.UserID, id.Role, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, entry)
}

// UpdateEntry 更新课表条目（排除自身后检测冲突）
// PUT /api/v1/schedules/:id
func (h *ScheduleHandler) UpdateEntry(c *gin.Context) {
	var req dto.ScheduleEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entry, err := h.scheduleSvc.Update(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, entry)
}

// DeleteEntry 删除课表条目
// DELETE /api/v1/schedules/:id
func (h *ScheduleHandler) DeleteEntry(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.scheduleSvc.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// CheckConflicts 冲突预检（不落库）
// POST /api/v1/schedules/check-conflicts
func (h *ScheduleHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictRequest
	if !bindJSON(c, &req) {
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.CheckConflicts(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportICS 学生上传 ICS 文件导入上课课表
// POST /api/v1/schedules/import  (multipart: file, semester?)
func (h *ScheduleHandler) ImportICS(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.ValidationFailed(c, []response.FieldError{{Field: "file", Message: "请上传 .ics 文件"}})
		return
	}
	defer file.Close()

	result, err := h.scheduleSvc.ImportICS(c.Request.Context(), userID, file, c.PostForm("semester"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.Created(c, result)
}

// handleScheduleError 统一处理课表模块业务错误
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	if writeConflict(c, 14002, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrScheduleEntryNotFound):
		response.NotFound(c, 14001, "课表条目不存在")
	case errors.Is(err, service.ErrICSInvalid):
		response.BadRequest(c, 14003, "ICS 文件无法解析")
	case errors.Is(err, service.ErrICSEmpty):
		response.BadRequest(c, 14004, "ICS 文件中没有可导入的每周课程")
	case errors.Is(err, service.ErrNoActivePeriod):
		response.BadRequest(c, 14005, "当前没有激活的学期，请指定 semester")
	default:
		response.InternalError(c)
	}
}
