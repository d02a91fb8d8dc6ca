package dto

// ── 导师可用时段 DTO ──

// AvailabilityRequest 创建 / 更新可用时段
// weekly 需要 day_of_week；once 需要 specific_date（星期由日期推导）
type AvailabilityRequest struct {
	RepeatType   string `json:"repeat_type"   binding:"required,oneof=weekly once"`
	DayOfWeek    *int   `json:"day_of_week"   binding:"required_if=RepeatType weekly,omitempty,min=0,max=6"`
	SpecificDate string `json:"specific_date" binding:"required_if=RepeatType once,omitempty,isodate"`
	StartTime    string `json:"start_time"    binding:"required,hhmm"`
	EndTime      string `json:"end_time"      binding:"required,hhmm,clockafter=StartTime"`
	Location     string `json:"location"      binding:"omitempty,max=200"`
}

// AvailabilityResponse 可用时段响应
type AvailabilityResponse struct {
	ID           string     `json:"id"`
	Advisor      *UserBrief `json:"advisor,omitempty"`
	RepeatType   string     `json:"repeat_type"`
	DayOfWeek    int        `json:"day_of_week"`
	SpecificDate string     `json:"specific_date,omitempty"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	Location     string     `json:"location"`
	IsActive     bool       `json:"is_active"`
}
