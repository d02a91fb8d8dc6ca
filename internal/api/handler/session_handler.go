package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/internal/workflow"
	"thesis-guidance/backend/pkg/response"
)

// SessionHandler 指导会话 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// RequestSession 学生申请会话
// POST /api/v1/sessions/request
func (h *SessionHandler) RequestSession(c *gin.Context) {
	var req dto.RequestSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Request(c.Request.Context(), studentID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// OfferSession 导师提议会话
// POST /api/v1/sessions/offer
func (h *SessionHandler) OfferSession(c *gin.Context) {
	var req dto.OfferSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Offer(c.Request.Context(), advisorID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// Transition 返回执行指定状态迁移的处理函数
// PUT /api/v1/sessions/:id/{approve|reject|accept|decline|cancel|complete}
// 请求体可省略；reject / decline / cancel 可附 {"reason": "..."}
func (h *SessionHandler) Transition(action workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SessionDecisionRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}

		userID, ok := MustGetUserID(c)
		if !ok {
			return
		}

		session, err := h.sessionSvc.Transition(c.Request.Context(), c.Param("id"), userID, action, req.Reason)
		if err != nil {
			h.handleSessionError(c, err)
			return
		}

		response.OK(c, session)
	}
}

// ListMine 当前用户的会话（学生为申请方，导师为被指导方）
// GET /api/v1/sessions/mine?status=&thesis_id=&page=&page_size=
func (h *SessionHandler) ListMine(c *gin.Context) {
	var req dto.SessionListRequest
	if !bindQuery(c, &req) {
		return
	}

	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	list, total, err := h.sessionSvc.ListMine(c.Request.Context(), id.UserID, id.Role, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSession 会话详情（参与者或管理员）
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Get(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// AddNote 导师追加指导笔记
// POST /api/v1/sessions/:id/notes
func (h *SessionHandler) AddNote(c *gin.Context) {
	var req dto.AddNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	advisorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	note, err := h.sessionSvc.AddNote(c.Request.Context(), c.Param("id"), advisorID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, note)
}

// ListNotes 会话笔记（按时间升序）
// GET /api/v1/sessions/:id/notes
func (h *SessionHandler) ListNotes(c *gin.Context) {
	id, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	notes, err := h.sessionSvc.ListNotes(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, notes)
}

// handleSessionError 统一处理会话模块业务错误
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	if writeConflict(c, 17011, err) || writeConcurrencyError(c, 17015, err) || writeThesisError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 17001, "指导会话不存在")
	case errors.Is(err, service.ErrSessionForbidden):
		response.Forbidden(c, 17002, "无权操作该指导会话")
	case errors.Is(err, service.ErrSessionDateInPast):
		response.BadRequest(c, 17003, "会话日期不能早于今天")
	case errors.Is(err, service.ErrSessionNotStarted):
		response.Conflict(c, 17004, "会话日期未到，不能标记完成")
	case errors.Is(err, service.ErrSlotInactive):
		response.Conflict(c, 17005, "该可用时段已停用")
	case errors.Is(err, service.ErrSlotDateMismatch):
		response.BadRequest(c, 17006, "所选日期与可用时段不匹配")
	case errors.Is(err, service.ErrOutsideSlot):
		response.BadRequest(c, 17007, "申请时间须在可用时段范围内")
	case errors.Is(err, service.ErrAdvisorNotAssigned):
		response.Forbidden(c, 17008, "该导师不是此论文的指导教师")
	case errors.Is(err, service.ErrSlotAlreadyBooked):
		response.Conflict(c, 17009, "该时间已被其他会话占用")
	case errors.Is(err, service.ErrNoteNotAllowed):
		response.Conflict(c, 17010, "仅已批准或已完成的会话可以追加笔记")
	case errors.Is(err, workflow.ErrInvalidTransition):
		response.Conflict(c, 17012, "当前状态不允许该操作")
	case errors.Is(err, workflow.ErrActorNotAllowed):
		response.Forbidden(c, 17013, "无权执行该操作")
	case errors.Is(err, service.ErrNoteContentEmpty):
		response.ValidationFailed(c, []response.FieldError{{Field: "content", Message: "笔记内容不能为空"}})
	case errors.Is(err, workflow.ErrReasonRequired):
		response.ValidationFailed(c, []response.FieldError{{Field: "reason", Message: "该操作必须填写原因"}})
	case errors.Is(err, workflow.ErrUnknownAction):
		response.NotFound(c, 17014, "未知的会话操作")
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 15001, "可用时段不存在")
	default:
		response.InternalError(c)
	}
}
