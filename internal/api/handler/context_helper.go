package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/internal/api/middleware"
	"thesis-guidance/backend/internal/conflict"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/service"
	"thesis-guidance/backend/internal/validation"
	pkgerrors "thesis-guidance/backend/pkg/errors"
	"thesis-guidance/backend/pkg/response"
)

// MustGetIdentity 从 Gin 上下文中安全提取当前身份。
// 如果 JWT 中间件未注入身份，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetIdentity(c *gin.Context) (middleware.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Unauthorized(c, response.CodeUnauthorized, "未认证")
		return middleware.Identity{}, false
	}
	return id, true
}

// MustGetUserID 只需要用户 ID 时的快捷方式
func MustGetUserID(c *gin.Context) (string, bool) {
	id, ok := MustGetIdentity(c)
	return id.UserID, ok
}

// ── 绑定 ──

// bindJSON 绑定并校验 JSON 请求体；失败时一次性返回全部字段错误
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

// bindQuery 绑定并校验查询参数
func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		writeBindError(c, err)
		return false
	}
	return true
}

func writeBindError(c *gin.Context, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
		return
	}
	response.ValidationFailed(c, validation.Translate(err))
}

// ── 跨模块通用错误 ──

// ConflictData 409 冲突响应携带的明细
type ConflictData struct {
	Conflicts []dto.ConflictItem `json:"conflicts"`
}

// writeConflict 时间冲突 → 409 + 冲突明细
func writeConflict(c *gin.Context, code int, err error) bool {
	var cerr *conflict.Error
	if !errors.As(err, &cerr) {
		return false
	}
	response.ErrorWithData(c, http.StatusConflict, code, "时间冲突", ConflictData{
		Conflicts: service.ToConflictItems(cerr.Conflicts),
	})
	return true
}

// writeConcurrencyError 并发写冲突（乐观锁 / 预订锁）→ 409
func writeConcurrencyError(c *gin.Context, code int, err error) bool {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, code, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrResourceBusy):
		response.Conflict(c, code, "该时段正被其他请求预订，请稍后重试")
	default:
		return false
	}
	return true
}
