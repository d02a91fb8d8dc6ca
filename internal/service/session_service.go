package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"thesis-guidance/backend/config"
	"thesis-guidance/backend/internal/conflict"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
	"thesis-guidance/backend/internal/workflow"
	pkgerrors "thesis-guidance/backend/pkg/errors"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── 指导会话业务错误 ──

var (
	ErrSessionNotFound    = errors.New("指导会话不存在")
	ErrSessionForbidden   = errors.New("无权操作该指导会话")
	ErrSessionDateInPast  = errors.New("会话日期不能早于今天")
	ErrSessionNotStarted  = errors.New("会话日期未到，不能标记完成")
	ErrSlotInactive       = errors.New("该可用时段已停用")
	ErrSlotDateMismatch   = errors.New("所选日期与可用时段不匹配")
	ErrOutsideSlot        = errors.New("申请时间须在可用时段范围内")
	ErrAdvisorNotAssigned = errors.New("该导师不是此论文的指导教师")
	ErrSlotAlreadyBooked  = errors.New("该时间已被其他会话占用")
	ErrNoteNotAllowed     = errors.New("仅已批准或已完成的会话可以追加笔记")
	ErrNoteContentEmpty   = errors.New("笔记内容不能为空")
)

// SessionService 指导会话业务接口
type SessionService interface {
	// Request 学生基于导师可用时段申请 → PENDING
	Request(ctx context.Context, studentID string, req *dto.RequestSessionRequest) (*dto.SessionResponse, error)
	// Offer 导师主动提议 → OFFERED
	Offer(ctx context.Context, advisorID string, req *dto.OfferSessionRequest) (*dto.SessionResponse, error)
	// Transition 执行状态迁移（approve / reject / accept / decline / cancel / complete）
	Transition(ctx context.Context, id, userID string, action workflow.Action, reason string) (*dto.SessionResponse, error)
	ListMine(ctx context.Context, userID, role string, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error)
	Get(ctx context.Context, id, userID, role string) (*dto.SessionResponse, error)
	AddNote(ctx context.Context, id, advisorID string, req *dto.AddNoteRequest) (*dto.NoteResponse, error)
	ListNotes(ctx context.Context, id, userID, role string) ([]dto.NoteResponse, error)
}

type sessionService struct {
	repo    *repository.Repository
	locker  Locker
	lockTTL time.Duration
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

// NewSessionService 创建 SessionService 实例；locker 可为 nil
func NewSessionService(cfg *config.Config, repo *repository.Repository, locker Locker, loc *time.Location, logger *zap.Logger) SessionService {
	ttl := cfg.Guidance.BookingLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	return &sessionService{
		repo:    repo,
		locker:  locker,
		lockTTL: ttl,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *sessionService) today() time.Time {
	return timeutil.DateOnly(s.now().In(s.loc))
}

// ────────────────────── 预订辅助 ──────────────────────

// withBookingLock 持有 导师+日期 锁执行 fn
// 锁仅用于快速失败，Redis 异常时直接执行，最终由唯一索引兜底
func (s *sessionService) withBookingLock(ctx context.Context, advisorID string, date time.Time, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	key := fmt.Sprintf("booking:%s:%s", advisorID, timeutil.FormatDate(date))
	token, err := s.locker.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		s.logger.Warn("获取预订锁失败，降级执行", zap.String("key", key), zap.Error(err))
		return fn()
	}
	if token == "" {
		return pkgerrors.ErrResourceBusy
	}
	defer func() {
		if err := s.locker.ReleaseLock(ctx, key, token); err != nil {
			s.logger.Warn("释放预订锁失败", zap.String("key", key), zap.Error(err))
		}
	}()
	return fn()
}

// bookingConflicts 收集导师与学生当天的活跃会话，以及指定 owner 的课表
func (s *sessionService) bookingConflicts(ctx context.Context, candidate conflict.Entry, advisorID, studentID string, scheduleOwners ...string) error {
	date := *candidate.Date
	var existing []conflict.Entry

	advisorSessions, err := s.repo.Session.ListActiveByAdvisorOnDate(ctx, advisorID, date)
	if err != nil {
		return err
	}
	studentSessions, err := s.repo.Session.ListActiveByStudentOnDate(ctx, studentID, date)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, list := range [][]model.GuidanceSession{advisorSessions, studentSessions} {
		for i := range list {
			if seen[list[i].SessionID] {
				continue
			}
			seen[list[i].SessionID] = true
			existing = append(existing, sessionToConflict(&list[i]))
		}
	}

	for _, owner := range scheduleOwners {
		entries, err := s.repo.Schedule.ListByOwnerAndDay(ctx, owner, candidate.DayOfWeek)
		if err != nil {
			return err
		}
		for i := range entries {
			existing = append(existing, scheduleEntryToConflict(&entries[i]))
		}
	}
	return conflict.Check(candidate, existing, "")
}

// loadThesis 读取论文并转换错误
func (s *sessionService) loadThesis(ctx context.Context, id string) (*model.ThesisProject, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return thesis, nil
}

// create 加锁、冲突检测、落库（含通知），唯一索引冲突转换为 ErrSlotAlreadyBooked
func (s *sessionService) create(ctx context.Context, session *model.GuidanceSession, notice *model.Notification, scheduleOwners ...string) error {
	date := session.ScheduledDate
	candidate := conflict.Entry{
		DayOfWeek: timeutil.Weekday(date),
		Date:      &date,
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
	}
	return s.withBookingLock(ctx, session.AdvisorID, date, func() error {
		if err := s.bookingConflicts(ctx, candidate, session.AdvisorID, session.StudentID, scheduleOwners...); err != nil {
			return err
		}
		if err := s.repo.Session.Create(ctx, session, notice); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlotAlreadyBooked
			}
			s.logger.Error("创建指导会话失败", zap.Error(err))
			return err
		}
		return nil
	})
}

func (s *sessionService) reload(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return toSessionResponse(session), nil
}

// ────────────────────── Request ──────────────────────

func (s *sessionService) Request(ctx context.Context, studentID string, req *dto.RequestSessionRequest) (*dto.SessionResponse, error) {
	thesis, err := s.loadThesis(ctx, req.ThesisID)
	if err != nil {
		return nil, err
	}
	if thesis.StudentID != studentID {
		return nil, ErrThesisForbidden
	}

	slot, err := s.repo.Availability.GetByID(ctx, req.AvailabilitySlotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询可用时段失败", zap.String("id", req.AvailabilitySlotID), zap.Error(err))
		return nil, err
	}
	if !slot.IsActive {
		return nil, ErrSlotInactive
	}
	if !thesis.HasAdvisor(slot.AdvisorID) {
		return nil, ErrAdvisorNotAssigned
	}

	date, err := timeutil.ParseDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, ErrSessionDateInPast
	}
	switch slot.RepeatType {
	case model.RepeatOnce:
		if slot.SpecificDate == nil || !timeutil.SameDate(*slot.SpecificDate, date) {
			return nil, ErrSlotDateMismatch
		}
	default:
		if timeutil.Weekday(date) != slot.DayOfWeek {
			return nil, ErrSlotDateMismatch
		}
	}

	start, end := slot.StartTime, slot.EndTime
	if req.StartTime != "" {
		start, end = req.StartTime, req.EndTime
		if err := withinSlot(start, end, slot.StartTime, slot.EndTime); err != nil {
			return nil, err
		}
	}

	slotID := slot.AvailabilitySlotID
	session := &model.GuidanceSession{
		ThesisID:           thesis.ThesisID,
		StudentID:          studentID,
		AdvisorID:          slot.AdvisorID,
		AvailabilitySlotID: &slotID,
		ScheduledDate:      date,
		StartTime:          start,
		EndTime:            end,
		Location:           slot.Location,
		Topic:              strings.TrimSpace(req.Topic),
		Status:             string(workflow.StatusPending),
	}
	session.CreatedBy = &studentID
	session.UpdatedBy = &studentID

	notice := newSessionNotice(slot.AdvisorID, model.NotifySessionRequested,
		"新的指导申请",
		fmt.Sprintf("%s 申请于 %s %s-%s 进行指导", displayName(thesis.Student), req.ScheduledDate, start, end))

	// 学生的上课课表也参与冲突检测
	if err := s.create(ctx, session, notice, studentID); err != nil {
		return nil, err
	}

	s.logger.Info("学生申请指导",
		zap.String("session_id", session.SessionID),
		zap.String("student_id", studentID),
		zap.String("advisor_id", slot.AdvisorID),
	)
	return s.reload(ctx, session.SessionID)
}

// withinSlot 申请时间须落在可用时段内
func withinSlot(start, end, slotStart, slotEnd string) error {
	s, e, err := timeutil.ParseRange(start, end)
	if err != nil {
		return err
	}
	ss, se, err := timeutil.ParseRange(slotStart, slotEnd)
	if err != nil {
		return err
	}
	if s < ss || e > se {
		return ErrOutsideSlot
	}
	return nil
}

// ────────────────────── Offer ──────────────────────

func (s *sessionService) Offer(ctx context.Context, advisorID string, req *dto.OfferSessionRequest) (*dto.SessionResponse, error) {
	thesis, err := s.loadThesis(ctx, req.ThesisID)
	if err != nil {
		return nil, err
	}
	if !thesis.HasAdvisor(advisorID) {
		return nil, ErrAdvisorNotAssigned
	}

	date, err := timeutil.ParseDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, ErrSessionDateInPast
	}

	session := &model.GuidanceSession{
		ThesisID:      thesis.ThesisID,
		StudentID:     thesis.StudentID,
		AdvisorID:     advisorID,
		ScheduledDate: date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Location:      strings.TrimSpace(req.Location),
		Topic:         strings.TrimSpace(req.Topic),
		Status:        string(workflow.StatusOffered),
	}
	session.CreatedBy = &advisorID
	session.UpdatedBy = &advisorID

	advisorName := ""
	for i := range thesis.Advisors {
		if thesis.Advisors[i].UserID == advisorID {
			advisorName = thesis.Advisors[i].Name
		}
	}
	notice := newSessionNotice(thesis.StudentID, model.NotifySessionOffered,
		"导师提议指导时间",
		fmt.Sprintf("%s 提议于 %s %s-%s 进行指导", advisorName, req.ScheduledDate, req.StartTime, req.EndTime))

	// 导师的授课课表参与冲突检测
	if err := s.create(ctx, session, notice, advisorID); err != nil {
		return nil, err
	}

	s.logger.Info("导师提议指导",
		zap.String("session_id", session.SessionID),
		zap.String("advisor_id", advisorID),
		zap.String("student_id", thesis.StudentID),
	)
	return s.reload(ctx, session.SessionID)
}

// ────────────────────── Transition ──────────────────────

// 各迁移动作对应的通知
var transitionNotices = map[workflow.Action]struct {
	typ   string
	title string
}{
	workflow.ActionApprove:  {model.NotifySessionApproved, "指导申请已批准"},
	workflow.ActionReject:   {model.NotifySessionRejected, "指导申请被拒绝"},
	workflow.ActionAccept:   {model.NotifySessionApproved, "学生已接受指导提议"},
	workflow.ActionDecline:  {model.NotifySessionDeclined, "学生婉拒了指导提议"},
	workflow.ActionCancel:   {model.NotifySessionCancelled, "指导会话已取消"},
	workflow.ActionComplete: {model.NotifySessionCompleted, "指导会话已完成"},
}

func (s *sessionService) Transition(ctx context.Context, id, userID string, action workflow.Action, reason string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询指导会话失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	var actor workflow.Actor
	var counterpart string
	switch userID {
	case session.AdvisorID:
		actor, counterpart = workflow.ActorAdvisor, session.StudentID
	case session.StudentID:
		actor, counterpart = workflow.ActorStudent, session.AdvisorID
	default:
		return nil, ErrSessionForbidden
	}

	next, err := workflow.Transition(workflow.Status(session.Status), action, actor, reason)
	if err != nil {
		return nil, err
	}
	if action == workflow.ActionComplete && session.ScheduledDate.After(s.today()) {
		return nil, ErrSessionNotStarted
	}

	now := s.now()
	session.Status = string(next)
	if r := strings.TrimSpace(reason); r != "" {
		session.StatusReason = r
	}
	switch action {
	case workflow.ActionApprove, workflow.ActionReject, workflow.ActionAccept, workflow.ActionDecline:
		session.DecidedAt = &now
	case workflow.ActionComplete:
		session.CompletedAt = &now
	}
	session.UpdatedBy = &userID

	meta := transitionNotices[action]
	content := fmt.Sprintf("%s %s-%s 的指导会话状态变更为 %s",
		timeutil.FormatDate(session.ScheduledDate), session.StartTime, session.EndTime, next)
	if session.StatusReason != "" && action != workflow.ActionComplete {
		content += "，原因：" + session.StatusReason
	}
	notice := newSessionNotice(counterpart, meta.typ, meta.title, content)
	notice.RelatedID = &session.SessionID

	if err := s.repo.Session.UpdateStatus(ctx, session, notice); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新会话状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("会话状态迁移",
		zap.String("session_id", id),
		zap.String("action", string(action)),
		zap.String("status", session.Status),
		zap.String("by", userID),
	)
	return toSessionResponse(session), nil
}

// ────────────────────── 查询 ──────────────────────

func (s *sessionService) ListMine(ctx context.Context, userID, role string, req *dto.SessionListRequest) ([]dto.SessionResponse, int64, error) {
	filter := repository.SessionFilter{Status: req.Status, ThesisID: req.ThesisID}
	switch role {
	case model.RoleAdvisor:
		filter.AdvisorID = userID
	case model.RoleStudent:
		filter.StudentID = userID
	}

	sessions, total, err := s.repo.Session.List(ctx, filter, req.Offset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询会话列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *toSessionResponse(&sessions[i]))
	}
	return result, total, nil
}

// visible 管理员或会话参与者可见
func (s *sessionService) visible(ctx context.Context, id, userID, role string) (*model.GuidanceSession, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询指导会话失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if role != model.RoleAdmin && session.StudentID != userID && session.AdvisorID != userID {
		return nil, ErrSessionForbidden
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, id, userID, role string) (*dto.SessionResponse, error) {
	session, err := s.visible(ctx, id, userID, role)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(session), nil
}

// ────────────────────── 笔记 ──────────────────────

func (s *sessionService) AddNote(ctx context.Context, id, advisorID string, req *dto.AddNoteRequest) (*dto.NoteResponse, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrNoteContentEmpty
	}

	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询指导会话失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if session.AdvisorID != advisorID {
		return nil, ErrSessionForbidden
	}
	if !workflow.CanAddNote(workflow.Status(session.Status)) {
		return nil, ErrNoteNotAllowed
	}

	note := &model.SessionNote{
		SessionID: session.SessionID,
		AdvisorID: advisorID,
		Content:   content,
		Tasks:     datatypes.JSONSlice[string](cleanTasks(req.Tasks)),
	}
	notice := newSessionNotice(session.StudentID, model.NotifyNoteAdded,
		"导师添加了指导笔记",
		fmt.Sprintf("%s 的指导会话有新的笔记", timeutil.FormatDate(session.ScheduledDate)))
	notice.RelatedID = &session.SessionID

	if err := s.repo.Session.AddNote(ctx, note, notice); err != nil {
		s.logger.Error("追加笔记失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	note.Advisor = session.Advisor

	resp := toNoteResponse(note)
	return &resp, nil
}

func (s *sessionService) ListNotes(ctx context.Context, id, userID, role string) ([]dto.NoteResponse, error) {
	if _, err := s.visible(ctx, id, userID, role); err != nil {
		return nil, err
	}
	notes, err := s.repo.Session.ListNotes(ctx, id)
	if err != nil {
		s.logger.Error("查询笔记失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	result := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		result = append(result, toNoteResponse(&notes[i]))
	}
	return result, nil
}

// ── 通知构造 ──

const relatedTypeSession = "session"

func newSessionNotice(userID, typ, title, content string) *model.Notification {
	related := relatedTypeSession
	return &model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &related,
	}
}

func displayName(u *model.User) string {
	if u == nil {
		return "学生"
	}
	return u.Name
}

// cleanTasks 去除空白项
func cleanTasks(tasks []string) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
