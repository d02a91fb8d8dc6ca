package dto

// ── 课表模块 DTO ──

// ScheduleEntryRequest 创建 / 更新课表条目
// 条目类型由当前用户角色决定：导师为 teaching，学生为 course
type ScheduleEntryRequest struct {
	CourseName string `json:"course_name" binding:"required,min=1,max=100"`
	Room       string `json:"room"        binding:"omitempty,max=50"`
	Semester   string `json:"semester"    binding:"omitempty,max=50"`
	DayOfWeek  *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime  string `json:"start_time"  binding:"required,hhmm"`
	EndTime    string `json:"end_time"    binding:"required,hhmm,clockafter=StartTime"`
}

// ScheduleEntryResponse 课表条目响应
type ScheduleEntryResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	CourseName string `json:"course_name"`
	Room       string `json:"room"`
	Semester   string `json:"semester"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Source     string `json:"source"`
	UpdatedAt  string `json:"updated_at"`
}

// CheckConflictRequest 冲突预检（不落库）
// 提供 date 时按具体日期检测（同时匹配该星期的每周条目），否则按 day_of_week 检测
type CheckConflictRequest struct {
	DayOfWeek *int   `json:"day_of_week" binding:"required_without=Date,omitempty,min=0,max=6"`
	Date      string `json:"date"        binding:"omitempty,isodate"`
	StartTime string `json:"start_time"  binding:"required,hhmm"`
	EndTime   string `json:"end_time"    binding:"required,hhmm,clockafter=StartTime"`
	ExcludeID string `json:"exclude_id"  binding:"omitempty,uuid"`
}

// CheckConflictResponse 冲突预检结果
type CheckConflictResponse struct {
	HasConflict bool           `json:"has_conflict"`
	Conflicts   []ConflictItem `json:"conflicts"`
}

// ImportScheduleResponse ICS 导入结果
// Conflicts 为与手动条目重叠的条目，仅提示，不阻止导入
type ImportScheduleResponse struct {
	Semester  string                  `json:"semester"`
	Imported  int                     `json:"imported"`
	Skipped   int                     `json:"skipped"` // 非每周重复或时间无法识别的事件
	Entries   []ScheduleEntryResponse `json:"entries"`
	Conflicts []ConflictItem          `json:"conflicts"`
}
