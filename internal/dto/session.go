package dto

// ── 指导会话 DTO ──

// RequestSessionRequest 学生基于导师可用时段申请会话
// start_time / end_time 省略时使用整个时段，提供时须落在时段内
type RequestSessionRequest struct {
	ThesisID           string `json:"thesis_id"            binding:"required,uuid"`
	AvailabilitySlotID string `json:"availability_slot_id" binding:"required,uuid"`
	ScheduledDate      string `json:"scheduled_date"       binding:"required,isodate"`
	StartTime          string `json:"start_time"           binding:"required_with=EndTime,omitempty,hhmm"`
	EndTime            string `json:"end_time"             binding:"required_with=StartTime,omitempty,hhmm,clockafter=StartTime"`
	Topic              string `json:"topic"                binding:"omitempty,max=255"`
}

// OfferSessionRequest 导师主动提议会话
type OfferSessionRequest struct {
	ThesisID      string `json:"thesis_id"      binding:"required,uuid"`
	ScheduledDate string `json:"scheduled_date" binding:"required,isodate"`
	StartTime     string `json:"start_time"     binding:"required,hhmm"`
	EndTime       string `json:"end_time"       binding:"required,hhmm,clockafter=StartTime"`
	Location      string `json:"location"       binding:"omitempty,max=200"`
	Topic         string `json:"topic"          binding:"omitempty,max=255"`
}

// SessionDecisionRequest 审批 / 拒绝 / 取消时附带的原因
type SessionDecisionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SessionListRequest 会话列表查询参数
type SessionListRequest struct {
	PaginationRequest
	Status   string `form:"status"    binding:"omitempty,oneof=PENDING OFFERED APPROVED REJECTED DECLINED COMPLETED CANCELLED"`
	ThesisID string `form:"thesis_id" binding:"omitempty,uuid"`
}

// SessionResponse 会话响应
type SessionResponse struct {
	ID                 string     `json:"id"`
	ThesisID           string     `json:"thesis_id"`
	ThesisJudul        string     `json:"thesis_judul,omitempty"`
	Student            *UserBrief `json:"student,omitempty"`
	Advisor            *UserBrief `json:"advisor,omitempty"`
	AvailabilitySlotID string     `json:"availability_slot_id,omitempty"`
	ScheduledDate      string     `json:"scheduled_date"`
	StartTime          string     `json:"start_time"`
	EndTime            string     `json:"end_time"`
	Location           string     `json:"location"`
	Topic              string     `json:"topic"`
	Status             string     `json:"status"`
	StatusReason       string     `json:"status_reason,omitempty"`
	DecidedAt          string     `json:"decided_at,omitempty"`
	CompletedAt        string     `json:"completed_at,omitempty"`
	CreatedAt          string     `json:"created_at"`
}

// AddNoteRequest 追加指导笔记
type AddNoteRequest struct {
	Content string   `json:"content" binding:"required,notblank,max=5000"`
	Tasks   []string `json:"tasks"   binding:"omitempty,max=20,dive,max=500"`
}

// NoteResponse 指导笔记响应
type NoteResponse struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Advisor   *UserBrief `json:"advisor,omitempty"`
	Content   string     `json:"content"`
	Tasks     []string   `json:"tasks"`
	CreatedAt string     `json:"created_at"`
}
