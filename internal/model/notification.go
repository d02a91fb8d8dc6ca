package model

// Notification 通知消息表 — 对应 notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(20)"                               json:"related_type,omitempty"` // session | thesis
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// 通知类型
const (
	NotifySessionRequested = "session_requested"
	NotifySessionOffered   = "session_offered"
	NotifySessionApproved  = "session_approved"
	NotifySessionRejected  = "session_rejected"
	NotifySessionDeclined  = "session_declined"
	NotifySessionCancelled = "session_cancelled"
	NotifySessionCompleted = "session_completed"
	NotifyNoteAdded        = "note_added"
)
