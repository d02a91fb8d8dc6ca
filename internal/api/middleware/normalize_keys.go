package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"thesis-guidance/backend/pkg/response"
)

// NormalizeJSONKeys 把 JSON 请求体中的对象键统一为 snake_case
// 客户端可混用 scheduledDate / scheduled_date，DTO 只声明 snake_case
// 非法 JSON 原样透传，由绑定阶段报告语法错误
func NormalizeJSONKeys() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody ||
			!strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		_ = c.Request.Body.Close()
		if err != nil {
			if IsBodyTooLarge(err) {
				response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "请求体过大")
			} else {
				response.BadRequest(c, response.CodeValidation, "读取请求体失败")
			}
			c.Abort()
			return
		}

		out := raw
		var doc any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err == nil {
			if b, err := json.Marshal(normalizeValue(doc)); err == nil {
				out = b
			}
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(out))
		c.Request.ContentLength = int64(len(out))
		c.Next()
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			key := SnakeCase(k)
			// 同时出现 camelCase 与 snake_case 时以 snake_case 为准
			if _, dup := m[key]; dup && key != k {
				continue
			}
			m[key] = normalizeValue(val)
		}
		return m
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

// SnakeCase availabilitySlotID → availability_slot_id；已是 snake_case 的键不变
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
