// Package validation 请求校验闸门。
//
// 以 go-playground/validator 为引擎替换 gin 默认校验器：字段名取 json tag，
// 错误信息为中文，一次性收集全部违规。未在 DTO 中声明的字段在反序列化时即被丢弃。
package validation

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"thesis-guidance/backend/pkg/response"
	"thesis-guidance/backend/pkg/timeutil"
)

// 自定义 tag
const (
	tagClock      = "hhmm"       // 补零 24 小时制 HH:MM
	tagIdentity   = "nim"        // 10 位数字编号（NIM / NIDN）
	tagDate       = "isodate"    // YYYY-MM-DD
	tagClockAfter = "clockafter" // clockafter=StartTime：晚于同级字段
	tagNotBlank   = "notblank"   // 去除首尾空白后非空
)

var identityPattern = regexp.MustCompile(`^\d{10}$`)

// Validator 实现 gin 的 binding.StructValidator
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New 创建校验器
func New() *Validator {
	v := validator.New()
	v.SetTagName("binding")

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_zh := zh.New()
	uni := ut.New(_zh, _zh)
	trans, _ := uni.GetTranslator("zh")
	_ = zh_translations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation(tagClock, validateClock)
	_ = v.RegisterValidation(tagIdentity, validateIdentity)
	_ = v.RegisterValidation(tagDate, validateDate)
	_ = v.RegisterValidation(tagClockAfter, validateClockAfter)
	_ = v.RegisterValidation(tagNotBlank, validateNotBlank)

	registerMessage(v, trans, tagClock, "{0}必须是 HH:MM 格式的时间")
	registerMessage(v, trans, tagIdentity, "{0}必须是10位数字")
	registerMessage(v, trans, tagDate, "{0}必须是 YYYY-MM-DD 格式的日期")
	registerMessage(v, trans, tagClockAfter, "{0}必须晚于开始时间")
	registerMessage(v, trans, tagNotBlank, "{0}不能为空白")
	// 条件必填规则，部分版本的中文翻译未覆盖
	registerMessage(v, trans, "required_if", "{0}为必填字段")
	registerMessage(v, trans, "required_with", "{0}为必填字段")
	registerMessage(v, trans, "required_without", "{0}为必填字段")

	return &Validator{validate: v, trans: trans}
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}

// ValidateStruct 校验结构体（或指向结构体的指针），其它类型直接放行
func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	val := reflect.ValueOf(obj)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	return v.validate.Struct(obj)
}

// Engine 返回底层引擎
func (v *Validator) Engine() any {
	return v.validate
}

// Translate 将绑定 / 校验错误转换为有序字段错误列表
func (v *Validator) Translate(err error) []response.FieldError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]response.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, response.FieldError{
				Field:   fieldPath(fe),
				Message: fe.Translate(v.trans),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []response.FieldError{{Field: field, Message: "字段类型错误，期望 " + typeErr.Type.String()}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []response.FieldError{{Field: "body", Message: "请求体不是合法的 JSON"}}
	}
	if errors.Is(err, io.EOF) {
		return []response.FieldError{{Field: "body", Message: "请求体不能为空"}}
	}
	return []response.FieldError{{Field: "body", Message: err.Error()}}
}

// fieldPath 去掉顶层结构体名，保留嵌套路径：CreateReq.items[0].start_time → items[0].start_time
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ── 自定义规则 ──

func validateClock(fl validator.FieldLevel) bool {
	return timeutil.IsClock(fl.Field().String())
}

func validateIdentity(fl validator.FieldLevel) bool {
	return identityPattern.MatchString(fl.Field().String())
}

func validateDate(fl validator.FieldLevel) bool {
	_, err := timeutil.ParseDate(fl.Field().String())
	return err == nil
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateClockAfter 跨字段规则：当前字段时间晚于 param 指定的同级字段
// 任一方格式非法时放行，由 hhmm 规则单独报错，避免重复提示
func validateClockAfter(fl validator.FieldLevel) bool {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return false
	}
	other := parent.FieldByName(fl.Param())
	if !other.IsValid() || other.Kind() != reflect.String {
		return false
	}
	start, err := timeutil.ParseClock(other.String())
	if err != nil {
		return true
	}
	end, err := timeutil.ParseClock(fl.Field().String())
	if err != nil {
		return true
	}
	return end > start
}

// ── 全局实例 ──

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default 返回进程级共享实例
func Default() *Validator {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV
}

// Install 替换 gin 的默认校验器
func Install() {
	binding.Validator = Default()
}

// Translate 使用共享实例翻译错误
func Translate(err error) []response.FieldError {
	return Default().Translate(err)
}
