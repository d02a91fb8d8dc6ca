package validation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Name     string `json:"name"      binding:"required"`
	Email    string `json:"email"     binding:"required,email"`
	Password string `json:"password"  binding:"required,min=8"`
	Role     string `json:"role"      binding:"required,oneof=ADMIN DOSEN MAHASISWA"`
	NIM      string `json:"identity_number" binding:"omitempty,nim"`
}

type slotReq struct {
	Date      string `json:"date"       binding:"required,isodate"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time"   binding:"required,hhmm,clockafter=StartTime"`
}

func fields(t *testing.T, v *Validator, obj any) map[string]string {
	t.Helper()
	errs := v.Translate(v.ValidateStruct(obj))
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Message
	}
	return out
}

func TestValidate_CollectsAllFieldErrors(t *testing.T) {
	v := New()
	errs := v.Translate(v.ValidateStruct(&registerReq{
		Name:     "Budi",
		Email:    "bukan-email",
		Password: "123",
		Role:     "SUPERUSER",
	}))
	if len(errs) != 3 {
		t.Fatalf("期望恰好 3 条错误，实际 %d: %+v", len(errs), errs)
	}
	want := []string{"email", "password", "role"}
	for i, f := range want {
		if errs[i].Field != f {
			t.Errorf("第 %d 条错误字段期望 %s，实际 %s", i, f, errs[i].Field)
		}
		if errs[i].Message == "" {
			t.Errorf("字段 %s 缺少错误信息", f)
		}
	}
}

func TestValidate_ValidPayload(t *testing.T) {
	v := New()
	err := v.ValidateStruct(registerReq{
		Name:     "Budi",
		Email:    "budi@kampus.ac.id",
		Password: "rahasia123",
		Role:     "MAHASISWA",
		NIM:      "2101234567",
	})
	if err != nil {
		t.Fatalf("合法载荷不应报错: %v", err)
	}
}

func TestValidate_RoleIsCaseSensitive(t *testing.T) {
	got := fields(t, New(), &registerReq{Name: "a", Email: "a@b.id", Password: "12345678", Role: "dosen"})
	if _, ok := got["role"]; !ok {
		t.Error("小写角色应被拒绝")
	}
}

func TestValidate_IdentityNumber(t *testing.T) {
	v := New()
	for _, nim := range []string{"123", "12345678901", "21012345ab"} {
		got := fields(t, v, &registerReq{Name: "a", Email: "a@b.id", Password: "12345678", Role: "DOSEN", NIM: nim})
		if _, ok := got["identity_number"]; !ok {
			t.Errorf("编号 %q 应被拒绝", nim)
		}
	}
}

func TestValidate_ClockAndDate(t *testing.T) {
	v := New()
	got := fields(t, v, &slotReq{Date: "2025-13-01", StartTime: "9:00", EndTime: "24:00"})
	for _, f := range []string{"date", "start_time", "end_time"} {
		if _, ok := got[f]; !ok {
			t.Errorf("字段 %s 应报错", f)
		}
	}
}

func TestValidate_EndAfterStart(t *testing.T) {
	v := New()
	got := fields(t, v, &slotReq{Date: "2025-10-14", StartTime: "10:00", EndTime: "10:00"})
	if len(got) != 1 {
		t.Fatalf("期望仅 end_time 一条错误，实际 %+v", got)
	}
	if _, ok := got["end_time"]; !ok {
		t.Error("结束时间等于开始时间应报错")
	}
	if err := v.ValidateStruct(&slotReq{Date: "2025-10-14", StartTime: "10:00", EndTime: "11:00"}); err != nil {
		t.Errorf("合法时间段不应报错: %v", err)
	}
}

func TestValidate_NotBlank(t *testing.T) {
	type noteReq struct {
		Content string `json:"content" binding:"required,notblank"`
	}
	v := New()
	for _, content := range []string{"   ", "\t\n"} {
		got := fields(t, v, &noteReq{Content: content})
		if _, ok := got["content"]; !ok {
			t.Errorf("空白内容 %q 应被拒绝", content)
		}
	}
	if err := v.ValidateStruct(&noteReq{Content: " Revisi bab 2 "}); err != nil {
		t.Errorf("非空白内容不应报错: %v", err)
	}
}

func TestValidate_NonStructPassesThrough(t *testing.T) {
	v := New()
	if err := v.ValidateStruct([]int{1, 2}); err != nil {
		t.Errorf("非结构体应直接放行: %v", err)
	}
	var p *registerReq
	if err := v.ValidateStruct(p); err != nil {
		t.Errorf("nil 指针应直接放行: %v", err)
	}
}

func TestInstall_GinBindingUsesTranslator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Install()

	r := gin.New()
	r.POST("/register", func(c *gin.Context) {
		var req registerReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"errors": Translate(err)})
			return
		}
		c.JSON(http.StatusOK, req)
	})

	body, _ := json.Marshal(map[string]string{
		"name": "Budi", "email": "x", "password": "1", "role": "X", "unknown": "dropped",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", w.Code)
	}
	var resp struct {
		Errors []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Errors) != 3 {
		t.Errorf("期望 3 条错误，实际 %+v", resp.Errors)
	}
}

func TestTranslate_MalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Install()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req registerReq
	errs := Translate(c.ShouldBindJSON(&req))
	if len(errs) != 1 || errs[0].Field != "body" {
		t.Errorf("非法 JSON 应返回单条 body 错误，实际 %+v", errs)
	}
}
