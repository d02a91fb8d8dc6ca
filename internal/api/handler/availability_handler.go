package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/pkg/response"
)

// AvailabilityHandler 导师可用时段 HTTP 处理器
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// ListMine 导师自己的全部时段（含停用）
// GET /api/v1/availability
func (h *AvailabilityHandler) ListMine(c *gin.Context) {
	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots, err := h.availabilitySvc.ListMine(c.Request.Context(), advisorID)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, slots)
}

// ListByAdvisor 某导师启用中的时段
// GET /api/v1/availability/advisors/:id
func (h *AvailabilityHandler) ListByAdvisor(c *gin.Context) {
	slots, err := h.availabilitySvc.ListByAdvisor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, slots)
}

// CreateSlot 新增可用时段
// POST /api/v1/availability
func (h *AvailabilityHandler) CreateSlot(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.availabilitySvc.Create(c.Request.Context(), advisorID, &req)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.Created(c, slot)
}

// UpdateSlot 更新可用时段
// PUT /api/v1/availability/:id
func (h *AvailabilityHandler) UpdateSlot(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}

	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.availabilitySvc.Update(c.Request.Context(), c.Param("id"), advisorID, &req)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, slot)
}

// ToggleSlot 启用 / 停用
// PATCH /api/v1/availability/:id/toggle
func (h *AvailabilityHandler) ToggleSlot(c *gin.Context) {
	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.availabilitySvc.Toggle(c.Request.Context(), c.Param("id"), advisorID)
	if err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, slot)
}

// DeleteSlot 删除可用时段
// DELETE /api/v1/availability/:id
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.availabilitySvc.Delete(c.Request.Context(), c.Param("id"), advisorID); err != nil {
		h.handleAvailabilityError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *AvailabilityHandler) handleAvailabilityError(c *gin.Context, err error) {
	if writeConflict(c, 15002, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 15001, "可用时段不存在")
	case errors.Is(err, service.ErrSlotDateInPast):
		response.BadRequest(c, 15003, "一次性时段的日期不能早于今天")
	case errors.Is(err, service.ErrAdvisorNotFound):
		response.NotFound(c, 15004, "导师不存在")
	case errors.Is(err, service.ErrSlotInvalidInput):
		response.BadRequest(c, 15005, "可用时段参数无效")
	default:
		response.InternalError(c)
	}
}
