package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/pkg/response"
)

// PeriodHandler 学期模块 HTTP 处理器
type PeriodHandler struct {
	periodSvc service.PeriodService
}

// NewPeriodHandler 创建 PeriodHandler
func NewPeriodHandler(periodSvc service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periodSvc: periodSvc}
}

// CreatePeriod 创建学期
// POST /api/v1/periods
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.Created(c, period)
}

// ListPeriods 学期列表
// GET /api/v1/periods
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodSvc.List(c.Request.Context())
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, periods)
}

// GetCurrentPeriod 当前激活学期
// GET /api/v1/periods/current
func (h *PeriodHandler) GetCurrentPeriod(c *gin.Context) {
	period, err := h.periodSvc.GetCurrent(c.Request.Context())
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// GetPeriod 学期详情
// GET /api/v1/periods/:id
func (h *PeriodHandler) GetPeriod(c *gin.Context) {
	period, err := h.periodSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// UpdatePeriod 更新学期
// PUT /api/v1/periods/:id
func (h *PeriodHandler) UpdatePeriod(c *gin.Context) {
	var req dto.UpdatePeriodRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// ActivatePeriod 激活学期（同时取消其它学期的激活）
// PUT /api/v1/periods/:id/activate
func (h *PeriodHandler) ActivatePeriod(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.periodSvc.Activate(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, nil)
}

// DeletePeriod 删除学期
// DELETE /api/v1/periods/:id
func (h *PeriodHandler) DeletePeriod(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.periodSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handlePeriodError(c, err)
		return
	}

	response.OK(c, nil)
}

// handlePeriodError 统一处理学期模块业务错误
func (h *PeriodHandler) handlePeriodError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 13001, "学期不存在")
	case errors.Is(err, service.ErrNoActivePeriod):
		response.NotFound(c, 13002, "当前没有激活的学期")
	case errors.Is(err, service.ErrPeriodDateInvalid):
		response.BadRequest(c, 13003, "学期日期须满足 开始 < UTS < UAS <= 结束")
	case errors.Is(err, service.ErrPeriodInUse):
		response.Conflict(c, 13004, "学期下仍有论文项目，无法删除")
	default:
		response.InternalError(c)
	}
}
