package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"thesis-guidance/backend/internal/conflict"
	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/workflow"
	pkgerrors "thesis-guidance/backend/pkg/errors"
)

// 今天为 2026-10-19（周一）
var sessionToday = mustDate("2026-10-19")

type sessionFixture struct {
	svc    SessionService
	mocks  *mockRepos
	locker *mockLocker
}

// setupTestSessionService 导师 adv-1 每周一 09:00-12:00 可约；论文 th-1 属于 stu-1，导师 adv-1
func setupTestSessionService() *sessionFixture {
	repo, mocks := newMockRepos()
	seedPeople(mocks)
	mocks.theses.Create(context.Background(), &model.ThesisProject{
		ThesisID: "th-1", Judul: "Skripsi Budi", Tipe: "TA1", PeriodID: "p1", StudentID: "stu-1",
	}, []string{"adv-1"})
	mocks.theses.Create(context.Background(), &model.ThesisProject{
		ThesisID: "th-2", Judul: "Skripsi Ani", Tipe: "TA2", PeriodID: "p1", StudentID: "stu-2",
	}, []string{"adv-1", "adv-2"})
	mocks.slots.Create(context.Background(), &model.AvailabilitySlot{
		AvailabilitySlotID: "slot-mon", AdvisorID: "adv-1", RepeatType: model.RepeatWeekly,
		DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Location: "Ruang Dosen 2", IsActive: true,
	})

	locker := newMockLocker()
	svc := NewSessionService(testConfig(), repo, locker, time.UTC, testLogger()).(*sessionService)
	svc.now = func() time.Time { return sessionToday.Add(8 * time.Hour) }
	return &sessionFixture{svc: svc, mocks: mocks, locker: locker}
}

func requestMonday(thesis, date, start, end string) *dto.RequestSessionRequest {
	return &dto.RequestSessionRequest{
		ThesisID:           thesis,
		AvailabilitySlotID: "slot-mon",
		ScheduledDate:      date,
		StartTime:          start,
		EndTime:            end,
		Topic:              "Bab 1",
	}
}

// ── Request ──

func TestSessionService_Request_Success(t *testing.T) {
	f := setupTestSessionService()

	resp, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	if err != nil {
		t.Fatalf("Request 应成功: %v", err)
	}
	if resp.Status != string(workflow.StatusPending) {
		t.Errorf("期望 PENDING，实际=%s", resp.Status)
	}
	if resp.Location != "Ruang Dosen 2" {
		t.Errorf("地点应继承时段，实际=%s", resp.Location)
	}

	notices := f.mocks.notifications.forUser("adv-1")
	if len(notices) != 1 || notices[0].Type != model.NotifySessionRequested {
		t.Fatalf("导师应收到 1 条申请通知，实际=%d", len(notices))
	}
	if notices[0].RelatedID == nil || *notices[0].RelatedID != resp.ID {
		t.Error("通知应关联会话 ID")
	}
	if len(f.locker.held) != 0 || len(f.locker.acquired) != 1 {
		t.Errorf("预订锁应获取并释放一次: held=%v acquired=%v", f.locker.held, f.locker.acquired)
	}
}

func TestSessionService_Request_DefaultsToWholeSlot(t *testing.T) {
	f := setupTestSessionService()

	resp, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "", ""))
	if err != nil {
		t.Fatalf("Request 应成功: %v", err)
	}
	if resp.StartTime != "09:00" || resp.EndTime != "12:00" {
		t.Errorf("省略时间时应使用整个时段，实际=%s-%s", resp.StartTime, resp.EndTime)
	}
}

func TestSessionService_Request_Validation(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()

	tests := []struct {
		name    string
		student string
		req     *dto.RequestSessionRequest
		want    error
	}{
		{"非本人论文", "stu-2", requestMonday("th-1", "2026-10-26", "09:00", "10:00"), ErrThesisForbidden},
		{"论文不存在", "stu-1", requestMonday("ghost", "2026-10-26", "09:00", "10:00"), ErrThesisNotFound},
		{"日期星期不匹配", "stu-1", requestMonday("th-1", "2026-10-27", "09:00", "10:00"), ErrSlotDateMismatch},
		{"日期已过", "stu-1", requestMonday("th-1", "2026-10-12", "09:00", "10:00"), ErrSessionDateInPast},
		{"超出时段", "stu-1", requestMonday("th-1", "2026-10-26", "11:30", "12:30"), ErrOutsideSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Request(ctx, tt.student, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestSessionService_Request_SlotNotOwnedByAdvisor(t *testing.T) {
	f := setupTestSessionService()
	f.mocks.slots.Create(context.Background(), &model.AvailabilitySlot{
		AvailabilitySlotID: "slot-other", AdvisorID: "adv-2", RepeatType: model.RepeatWeekly,
		DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsActive: true,
	})

	req := requestMonday("th-1", "2026-10-26", "09:00", "10:00")
	req.AvailabilitySlotID = "slot-other"
	if _, err := f.svc.Request(context.Background(), "stu-1", req); !errors.Is(err, ErrAdvisorNotAssigned) {
		t.Errorf("期望 ErrAdvisorNotAssigned，实际: %v", err)
	}
}

func TestSessionService_Request_InactiveSlot(t *testing.T) {
	f := setupTestSessionService()
	f.mocks.slots.slots["slot-mon"].IsActive = false

	_, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	if !errors.Is(err, ErrSlotInactive) {
		t.Errorf("期望 ErrSlotInactive，实际: %v", err)
	}
}

func TestSessionService_Request_OnceSlot(t *testing.T) {
	f := setupTestSessionService()
	date := mustDate("2026-10-28")
	f.mocks.slots.Create(context.Background(), &model.AvailabilitySlot{
		AvailabilitySlotID: "slot-once", AdvisorID: "adv-1", RepeatType: model.RepeatOnce,
		DayOfWeek: 3, SpecificDate: &date, StartTime: "14:00", EndTime: "15:00", IsActive: true,
	})

	req := requestMonday("th-1", "2026-11-04", "", "")
	req.AvailabilitySlotID = "slot-once"
	if _, err := f.svc.Request(context.Background(), "stu-1", req); !errors.Is(err, ErrSlotDateMismatch) {
		t.Errorf("同星期但不同日期应不匹配，实际: %v", err)
	}

	req.ScheduledDate = "2026-10-28"
	if _, err := f.svc.Request(context.Background(), "stu-1", req); err != nil {
		t.Errorf("指定日期应成功: %v", err)
	}
}

// ── 双重预订 ──

func TestSessionService_Request_DoubleBookingConflict(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()

	if _, err := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00")); err != nil {
		t.Fatalf("首个申请应成功: %v", err)
	}

	_, err := f.svc.Request(ctx, "stu-2", requestMonday("th-2", "2026-10-26", "09:30", "10:30"))
	var cerr *conflict.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("重叠申请应返回冲突，实际: %v", err)
	}
	if cerr.Conflicts[0].Kind != conflict.KindSession {
		t.Errorf("冲突应来自已有会话，实际 kind=%s", cerr.Conflicts[0].Kind)
	}

	// 相接的时间可以预订
	if _, err := f.svc.Request(ctx, "stu-2", requestMonday("th-2", "2026-10-26", "10:00", "11:00")); err != nil {
		t.Errorf("相接的时间段应可预订: %v", err)
	}
}

func TestSessionService_Request_UniqueIndexRace(t *testing.T) {
	f := setupTestSessionService()

	// 冲突检测之后、写入之前另一请求抢先落库
	f.mocks.sessions.createHook = func(s *model.GuidanceSession) {
		f.mocks.sessions.createHook = nil
		f.mocks.sessions.insert(&model.GuidanceSession{
			ThesisID: "th-2", StudentID: "stu-2", AdvisorID: s.AdvisorID,
			ScheduledDate: s.ScheduledDate, StartTime: s.StartTime, EndTime: s.EndTime,
			Status: string(workflow.StatusPending),
		})
	}

	_, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Errorf("唯一索引冲突应转换为 ErrSlotAlreadyBooked，实际: %v", err)
	}
	if len(f.mocks.notifications.forUser("adv-1")) != 0 {
		t.Error("写入失败时不应产生通知")
	}
}

func TestSessionService_Request_LockBusy(t *testing.T) {
	f := setupTestSessionService()
	f.locker.held["booking:adv-1:2026-10-26"] = "someone-else"

	_, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	if !errors.Is(err, pkgerrors.ErrResourceBusy) {
		t.Errorf("锁被占用时应返回 ErrResourceBusy，实际: %v", err)
	}
}

func TestSessionService_Request_WithoutLocker(t *testing.T) {
	repo, mocks := newMockRepos()
	seedPeople(mocks)
	mocks.theses.Create(context.Background(), &model.ThesisProject{
		ThesisID: "th-1", Tipe: "TA1", PeriodID: "p1", StudentID: "stu-1",
	}, []string{"adv-1"})
	mocks.slots.Create(context.Background(), &model.AvailabilitySlot{
		AvailabilitySlotID: "slot-mon", AdvisorID: "adv-1", RepeatType: model.RepeatWeekly,
		DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsActive: true,
	})
	svc := NewSessionService(testConfig(), repo, nil, time.UTC, testLogger()).(*sessionService)
	svc.now = func() time.Time { return sessionToday }

	if _, err := svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00")); err != nil {
		t.Errorf("无 Redis 时应直接由数据库兜底: %v", err)
	}
}

func TestSessionService_Request_StudentCourseConflict(t *testing.T) {
	f := setupTestSessionService()
	f.mocks.schedules.Create(context.Background(), &model.ScheduleEntry{
		OwnerID: "stu-1", Kind: model.ScheduleKindCourse, CourseName: "Kalkulus",
		DayOfWeek: 1, StartTime: "08:00", EndTime: "09:40",
	})

	_, err := f.svc.Request(context.Background(), "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	if !errors.Is(err, conflict.ErrConflict) {
		t.Errorf("与学生上课时间冲突应返回冲突，实际: %v", err)
	}
}

// ── Offer ──

func TestSessionService_Offer(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()

	req := &dto.OfferSessionRequest{ThesisID: "th-1", ScheduledDate: "2026-10-28", StartTime: "13:00", EndTime: "14:00"}
	resp, err := f.svc.Offer(ctx, "adv-1", req)
	if err != nil {
		t.Fatalf("Offer 应成功: %v", err)
	}
	if resp.Status != string(workflow.StatusOffered) {
		t.Errorf("期望 OFFERED，实际=%s", resp.Status)
	}
	if n := f.mocks.notifications.forUser("stu-1"); len(n) != 1 || n[0].Type != model.NotifySessionOffered {
		t.Error("学生应收到提议通知")
	}

	if _, err := f.svc.Offer(ctx, "adv-2", req); !errors.Is(err, ErrAdvisorNotAssigned) {
		t.Errorf("非指导教师提议应失败，实际: %v", err)
	}
}

func TestSessionService_Offer_TeachingConflict(t *testing.T) {
	f := setupTestSessionService()
	f.mocks.schedules.Create(context.Background(), &model.ScheduleEntry{
		OwnerID: "adv-1", Kind: model.ScheduleKindTeaching, CourseName: "Basis Data",
		DayOfWeek: 3, StartTime: "13:00", EndTime: "15:00",
	})

	_, err := f.svc.Offer(context.Background(), "adv-1", &dto.OfferSessionRequest{
		ThesisID: "th-1", ScheduledDate: "2026-10-28", StartTime: "14:00", EndTime: "15:00",
	})
	if !errors.Is(err, conflict.ErrConflict) {
		t.Errorf("与授课时间冲突应返回冲突，实际: %v", err)
	}
}

// ── 状态迁移 ──

func TestSessionService_Transition_RequestApproveComplete(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()

	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-19", "10:00", "11:00"))

	approved, err := f.svc.Transition(ctx, created.ID, "adv-1", workflow.ActionApprove, "")
	if err != nil {
		t.Fatalf("导师批准应成功: %v", err)
	}
	if approved.Status != string(workflow.StatusApproved) || approved.DecidedAt == "" {
		t.Errorf("批准后状态不符: %+v", approved)
	}

	completed, err := f.svc.Transition(ctx, created.ID, "adv-1", workflow.ActionComplete, "")
	if err != nil {
		t.Fatalf("完成应成功: %v", err)
	}
	if completed.Status != string(workflow.StatusCompleted) || completed.CompletedAt == "" {
		t.Errorf("完成后状态不符: %+v", completed)
	}

	studentNotices := f.mocks.notifications.forUser("stu-1")
	if len(studentNotices) != 2 {
		t.Errorf("学生应收到批准与完成两条通知，实际=%d", len(studentNotices))
	}
}

func TestSessionService_Transition_WrongActor(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "10:00", "11:00"))

	if _, err := f.svc.Transition(ctx, created.ID, "stu-1", workflow.ActionApprove, ""); !errors.Is(err, workflow.ErrActorNotAllowed) {
		t.Errorf("学生不能批准，实际: %v", err)
	}
	if _, err := f.svc.Transition(ctx, created.ID, "adv-2", workflow.ActionApprove, ""); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("非参与者应返回 ErrSessionForbidden，实际: %v", err)
	}
}

func TestSessionService_Transition_DeclineNeedsReason(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	offered, _ := f.svc.Offer(ctx, "adv-1", &dto.OfferSessionRequest{
		ThesisID: "th-1", ScheduledDate: "2026-10-28", StartTime: "13:00", EndTime: "14:00",
	})

	if _, err := f.svc.Transition(ctx, offered.ID, "stu-1", workflow.ActionDecline, "  "); !errors.Is(err, workflow.ErrReasonRequired) {
		t.Errorf("婉拒须附原因，实际: %v", err)
	}

	declined, err := f.svc.Transition(ctx, offered.ID, "stu-1", workflow.ActionDecline, "Ada ujian")
	if err != nil {
		t.Fatalf("附原因婉拒应成功: %v", err)
	}
	if declined.StatusReason != "Ada ujian" {
		t.Errorf("原因应保存，实际=%q", declined.StatusReason)
	}
}

func TestSessionService_Transition_TerminalFreesSlot(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	first, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))

	if _, err := f.svc.Transition(ctx, first.ID, "adv-1", workflow.ActionReject, "Sedang dinas"); err != nil {
		t.Fatalf("拒绝应成功: %v", err)
	}
	if _, err := f.svc.Request(ctx, "stu-2", requestMonday("th-2", "2026-10-26", "09:00", "10:00")); err != nil {
		t.Errorf("被拒绝的会话不再占用时间: %v", err)
	}
	if _, err := f.svc.Transition(ctx, first.ID, "stu-1", workflow.ActionCancel, ""); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("终态不可再迁移，实际: %v", err)
	}
}

func TestSessionService_Transition_CompleteBeforeDate(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	f.svc.Transition(ctx, created.ID, "adv-1", workflow.ActionApprove, "")

	if _, err := f.svc.AddNote(ctx, created.ID, "adv-1", &dto.AddNoteRequest{Content: "  "}); !errors.Is(err, ErrNoteContentEmpty) {
		t.Errorf("空白笔记应被拒绝，实际: %v", err)
	}
	for _, n := range f.mocks.notifications.forUser("stu-1") {
		if n.Type == model.NotifyNoteAdded {
			t.Error("空白笔记不应通知学生")
		}
	}

	if _, err := f.svc.Transition(ctx, created.ID, "adv-1", workflow.ActionComplete, ""); !errors.Is(err, ErrSessionNotStarted) {
		t.Errorf("会话日期未到不能完成，实际: %v", err)
	}
}

func TestSessionService_Transition_OptimisticLock(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))

	// 读取之后、写入之前被并发修改
	stale, _ := f.mocks.sessions.GetByID(ctx, created.ID)
	f.mocks.sessions.sessions[created.ID].Version++

	stale.Status = string(workflow.StatusApproved)
	err := f.mocks.sessions.UpdateStatus(ctx, stale, nil)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("版本不匹配应返回 ErrOptimisticLock，实际: %v", err)
	}
}

// ── 查询与笔记 ──

func TestSessionService_ListMine_ByRole(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	f.svc.Request(ctx, "stu-2", requestMonday("th-2", "2026-10-26", "10:00", "11:00"))

	advisor, total, _ := f.svc.ListMine(ctx, "adv-1", model.RoleAdvisor, &dto.SessionListRequest{})
	if total != 2 || len(advisor) != 2 {
		t.Errorf("导师应看到 2 条，实际=%d", total)
	}
	student, total, _ := f.svc.ListMine(ctx, "stu-2", model.RoleStudent, &dto.SessionListRequest{})
	if total != 1 || student[0].ThesisID != "th-2" {
		t.Errorf("学生仅能看到自己的会话，实际=%d", total)
	}
}

func TestSessionService_Get_NonParticipant(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))

	if _, err := f.svc.Get(ctx, created.ID, "stu-2", model.RoleStudent); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("期望 ErrSessionForbidden，实际: %v", err)
	}
	if _, err := f.svc.Get(ctx, created.ID, "admin-1", model.RoleAdmin); err != nil {
		t.Errorf("管理员应可查看: %v", err)
	}
	if _, err := f.svc.Get(ctx, "ghost", "admin-1", model.RoleAdmin); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际: %v", err)
	}
}

func TestSessionService_AddNote(t *testing.T) {
	f := setupTestSessionService()
	ctx := context.Background()
	created, _ := f.svc.Request(ctx, "stu-1", requestMonday("th-1", "2026-10-26", "09:00", "10:00"))
	note := &dto.AddNoteRequest{Content: "Perbaiki latar belakang", Tasks: []string{" Revisi Bab 1 ", ""}}

	if _, err := f.svc.AddNote(ctx, created.ID, "adv-1", note); !errors.Is(err, ErrNoteNotAllowed) {
		t.Errorf("PENDING 会话不可添加笔记，实际: %v", err)
	}

	f.svc.Transition(ctx, created.ID, "adv-1", workflow.ActionApprove, "")

	if _, err := f.svc.AddNote(ctx, created.ID, "stu-1", note); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("学生不可添加笔记，实际: %v", err)
	}

	resp, err := f.svc.AddNote(ctx, created.ID, "adv-1", note)
	if err != nil {
		t.Fatalf("AddNote 应成功: %v", err)
	}
	if resp.Content != "Perbaiki latar belakang" || resp.Advisor == nil {
		t.Errorf("笔记内容不符: %+v", resp)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0] != "Revisi Bab 1" {
		t.Errorf("待办应去除空白项，实际: %q", resp.Tasks)
	}

	notes, err := f.svc.ListNotes(ctx, created.ID, "stu-1", model.RoleStudent)
	if err != nil || len(notes) != 1 {
		t.Errorf("学生应可查看笔记: %v, %d", err, len(notes))
	}
	if _, err := f.svc.ListNotes(ctx, created.ID, "stu-2", model.RoleStudent); !errors.Is(err, ErrSessionForbidden) {
		t.Errorf("非参与者不可查看笔记，实际: %v", err)
	}

	// 笔记通知学生
	found := false
	for _, n := range f.mocks.notifications.forUser("stu-1") {
		found = found || n.Type == model.NotifyNoteAdded
	}
	if !found {
		t.Error("学生应收到笔记通知")
	}
}

