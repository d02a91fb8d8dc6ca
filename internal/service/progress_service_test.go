package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/workflow"
)

func setupTestProgressService() (ProgressService, *mockRepos) {
	repo, mocks := newMockRepos()
	seedPeople(mocks)
	// UTS 2026-10-26，UAS 2027-01-11
	mocks.theses.Create(context.Background(), &model.ThesisProject{
		ThesisID: "th-1", Judul: "Skripsi Budi", Tipe: "TA1", PeriodID: "p1", StudentID: "stu-1",
	}, []string{"adv-1"})
	mocks.theses.Create(context.Background(), &model.ThesisProject{
		ThesisID: "th-2", Judul: "Skripsi Ani", Tipe: "TA2", PeriodID: "p1", StudentID: "stu-2",
	}, []string{"adv-2"})
	return NewProgressService(repo, testLogger()), mocks
}

func addSession(m *mockRepos, thesisID, date, start string, status workflow.Status) {
	t := m.theses.theses[thesisID]
	m.sessions.insert(&model.GuidanceSession{
		ThesisID:      thesisID,
		StudentID:     t.StudentID,
		AdvisorID:     m.theses.advisors[thesisID][0],
		ScheduledDate: mustDate(date),
		StartTime:     start,
		EndTime:       "23:00",
		Status:        string(status),
	})
}

func TestProgressService_ForThesis_Buckets(t *testing.T) {
	svc, mocks := setupTestProgressService()
	addSession(mocks, "th-1", "2026-10-05", "09:00", workflow.StatusCompleted)
	addSession(mocks, "th-1", "2026-10-26", "09:00", workflow.StatusCompleted) // UTS 当天计入 UTS 前
	addSession(mocks, "th-1", "2026-11-16", "09:00", workflow.StatusCompleted)
	addSession(mocks, "th-1", "2027-01-11", "09:00", workflow.StatusCompleted) // UAS 当天计入窗口
	addSession(mocks, "th-1", "2027-01-20", "09:00", workflow.StatusCompleted) // UAS 之后不计入
	addSession(mocks, "th-1", "2026-11-23", "09:00", workflow.StatusApproved)  // 未完成不计

	resp, err := svc.ForThesis(context.Background(), "th-1", "stu-1", model.RoleStudent)
	if err != nil {
		t.Fatalf("ForThesis 应成功: %v", err)
	}
	if resp.CompletedBeforeUTS != 2 || resp.CompletedBeforeUAS != 2 || resp.Uncounted != 1 {
		t.Errorf("分桶不符: uts=%d uas=%d uncounted=%d", resp.CompletedBeforeUTS, resp.CompletedBeforeUAS, resp.Uncounted)
	}
	if !resp.CanGraduate {
		t.Error("TA1 满足 2+2 应可毕业")
	}
	if resp.Student == nil || resp.Period == nil {
		t.Error("响应应包含学生与学期摘要")
	}
}

func TestProgressService_ForThesis_FrontLoadedDoesNotCount(t *testing.T) {
	svc, mocks := setupTestProgressService()
	for _, d := range []string{"2026-09-07", "2026-09-14", "2026-09-21", "2026-09-28"} {
		addSession(mocks, "th-1", d, "09:00", workflow.StatusCompleted)
	}

	resp, err := svc.ForThesis(context.Background(), "th-1", "adv-1", model.RoleAdvisor)
	if err != nil {
		t.Fatalf("ForThesis 应成功: %v", err)
	}
	if !resp.MeetsUTSRequirement || resp.MeetsUASRequirement || resp.CanGraduate {
		t.Errorf("UTS 前 4 次不能弥补窗口期 0 次: %+v", resp.Record)
	}
}

func TestProgressService_ForThesis_Forbidden(t *testing.T) {
	svc, _ := setupTestProgressService()

	if _, err := svc.ForThesis(context.Background(), "th-1", "stu-2", model.RoleStudent); !errors.Is(err, ErrThesisForbidden) {
		t.Errorf("期望 ErrThesisForbidden，实际: %v", err)
	}
	if _, err := svc.ForThesis(context.Background(), "ghost", "admin-1", model.RoleAdmin); !errors.Is(err, ErrThesisNotFound) {
		t.Errorf("期望 ErrThesisNotFound，实际: %v", err)
	}
}

func TestProgressService_Mine(t *testing.T) {
	svc, mocks := setupTestProgressService()
	addSession(mocks, "th-2", "2026-10-05", "09:00", workflow.StatusCompleted)

	list, err := svc.Mine(context.Background(), "stu-2")
	if err != nil {
		t.Fatalf("Mine 应成功: %v", err)
	}
	if len(list) != 1 || list[0].ThesisID != "th-2" {
		t.Fatalf("学生应仅看到自己的论文: %+v", list)
	}
	if list[0].RequiredBeforeUTS != 3 || list[0].CompletedBeforeUTS != 1 {
		t.Errorf("TA2 阈值为 3，实际 required=%d completed=%d", list[0].RequiredBeforeUTS, list[0].CompletedBeforeUTS)
	}
}

func TestProgressService_Export(t *testing.T) {
	svc, mocks := setupTestProgressService()
	addSession(mocks, "th-1", "2026-10-05", "09:00", workflow.StatusCompleted)

	buf, filename, err := svc.Export(context.Background(), "p1", "admin-1", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Export 应成功: %v", err)
	}
	if filename != "指导进度_Ganjil p1.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("导出内容应为合法 xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("指导进度")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 2 条数据
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际=%d", len(rows))
	}
	if rows[1][1] != "NIM" || rows[2][1] != "2100000001" || rows[2][6] != "1/2" {
		t.Errorf("数据行不符: %v / %v", rows[1], rows[2])
	}
}

func TestProgressService_Export_AdvisorScope(t *testing.T) {
	svc, _ := setupTestProgressService()

	buf, _, err := svc.Export(context.Background(), "p1", "adv-2", model.RoleAdvisor)
	if err != nil {
		t.Fatalf("Export 应成功: %v", err)
	}
	f, _ := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	defer f.Close()
	rows, _ := f.GetRows("指导进度")
	if len(rows) != 3 || rows[2][2] != "Ani" {
		t.Errorf("导师仅导出所指导的论文，实际=%v", rows)
	}
}

func TestProgressService_Export_Empty(t *testing.T) {
	svc, mocks := setupTestProgressService()
	mocks.periods.add("p2", "2027-03-30", "2027-06-15", false)

	if _, _, err := svc.Export(context.Background(), "p2", "admin-1", model.RoleAdmin); !errors.Is(err, ErrExportNoTheses) {
		t.Errorf("期望 ErrExportNoTheses，实际: %v", err)
	}
	if _, _, err := svc.Export(context.Background(), "ghost", "admin-1", model.RoleAdmin); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("期望 ErrPeriodNotFound，实际: %v", err)
	}
}
