package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/pkg/response"
)

// ThesisHandler 论文项目 HTTP 处理器
type ThesisHandler struct {
	thesisSvc service.ThesisService
}

// NewThesisHandler 创建 ThesisHandler
func NewThesisHandler(thesisSvc service.ThesisService) *ThesisHandler {
	return &ThesisHandler{thesisSvc: thesisSvc}
}

// CreateThesis 创建论文项目（管理员）
// POST /api/v1/theses
func (h *ThesisHandler) CreateThesis(c *gin.Context) {
	var req dto.CreateThesisRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	thesis, err := h.thesisSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.Created(c, thesis)
}

// ListTheses 论文项目列表（管理员）
// GET /api/v1/theses?period_id=&page=&page_size=
func (h *ThesisHandler) ListTheses(c *gin.Context) {
	var req dto.ThesisListRequest
	if !bindQuery(c, &req) {
		return
	}

	list, total, err := h.thesisSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListMine 当前用户参与的论文项目
// GET /api/v1/theses/mine
func (h *ThesisHandler) ListMine(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	list, err := h.thesisSvc.ListMine(c.Request.Context(), id.UserID, id.Role)
	if err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.OK(c, list)
}

// GetThesis 论文项目详情（参与者或管理员）
// GET /api/v1/theses/:id
func (h *ThesisHandler) GetThesis(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	thesis, err := h.thesisSvc.Get(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.OK(c, thesis)
}

// UpdateThesis 更新论文项目（管理员）
// PUT /api/v1/theses/:id
func (h *ThesisHandler) UpdateThesis(c *gin.Context) {
	var req dto.UpdateThesisRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	thesis, err := h.thesisSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.OK(c, thesis)
}

// DeleteThesis 删除论文项目（管理员）
// DELETE /api/v1/theses/:id
func (h *ThesisHandler) DeleteThesis(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.thesisSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleThesisError(c, err)
		return
	}

	response.OK(c, nil)
}

// writeThesisError 论文模块错误，进度与会话模块复用
func writeThesisError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrThesisNotFound):
		response.NotFound(c, 16001, "论文项目不存在")
	case errors.Is(err, service.ErrThesisStudentInvalid):
		response.BadRequest(c, 16002, "学生不存在或角色不是 MAHASISWA")
	case errors.Is(err, service.ErrThesisAdvisorInvalid):
		response.BadRequest(c, 16003, "导师不存在或角色不是 DOSEN")
	case errors.Is(err, service.ErrThesisForbidden):
		response.Forbidden(c, 16004, "无权查看该论文项目")
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 13001, "学期不存在")
	default:
		return false
	}
	return true
}

func (h *ThesisHandler) handleThesisError(c *gin.Context, err error) {
	if !writeThesisError(c, err) {
		response.InternalError(c)
	}
}
