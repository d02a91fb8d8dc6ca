package service

import (
	"context"
	"errors"
	"testing"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
)

func setupTestPeriodService() (PeriodService, *mockRepos) {
	repo, mocks := newMockRepos()
	return NewPeriodService(repo, testLogger()), mocks
}

func TestPeriodService_Create_Success(t *testing.T) {
	svc, _ := setupTestPeriodService()

	resp, err := svc.Create(context.Background(), &dto.CreatePeriodRequest{
		Name:      "Ganjil 2026/2027",
		StartDate: "2026-09-01",
		EndDate:   "2027-01-31",
		UTSDate:   "2026-10-26",
		UASDate:   "2027-01-11",
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.IsActive {
		t.Error("新建学期默认不激活")
	}
	if resp.UTSDate != "2026-10-26" {
		t.Errorf("期望 uts_date=2026-10-26，实际=%s", resp.UTSDate)
	}
}

func TestPeriodService_Create_InvalidOrder(t *testing.T) {
	svc, _ := setupTestPeriodService()

	tests := []struct {
		name       string
		start, end string
		uts, uas   string
	}{
		{"UTS 早于开始", "2026-09-01", "2027-01-31", "2026-08-30", "2027-01-11"},
		{"UAS 早于 UTS", "2026-09-01", "2027-01-31", "2026-12-01", "2026-11-01"},
		{"UTS 等于 UAS", "2026-09-01", "2027-01-31", "2026-11-01", "2026-11-01"},
		{"UAS 晚于结束", "2026-09-01", "2027-01-31", "2026-10-26", "2027-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), &dto.CreatePeriodRequest{
				Name: "X", StartDate: tt.start, EndDate: tt.end, UTSDate: tt.uts, UASDate: tt.uas,
			}, "admin-1")
			if !errors.Is(err, ErrPeriodDateInvalid) {
				t.Errorf("期望 ErrPeriodDateInvalid，实际: %v", err)
			}
		})
	}
}

func TestPeriodService_Create_UASOnEndDate(t *testing.T) {
	svc, _ := setupTestPeriodService()

	_, err := svc.Create(context.Background(), &dto.CreatePeriodRequest{
		Name: "X", StartDate: "2026-09-01", EndDate: "2027-01-31", UTSDate: "2026-10-26", UASDate: "2027-01-31",
	}, "admin-1")
	if err != nil {
		t.Errorf("UAS 等于结束日期应允许: %v", err)
	}
}

func TestPeriodService_Activate_Exclusive(t *testing.T) {
	svc, mocks := setupTestPeriodService()
	mocks.periods.add("p1", "2026-10-26", "2027-01-11", true)
	mocks.periods.add("p2", "2026-10-26", "2027-01-11", false)

	if err := svc.Activate(context.Background(), "p2", "admin-1"); err != nil {
		t.Fatalf("Activate 应成功: %v", err)
	}
	if mocks.periods.periods["p1"].IsActive || !mocks.periods.periods["p2"].IsActive {
		t.Error("激活后应仅 p2 处于激活状态")
	}

	current, err := svc.GetCurrent(context.Background())
	if err != nil || current.ID != "p2" {
		t.Errorf("当前学期应为 p2，实际=%v err=%v", current, err)
	}
}

func TestPeriodService_Activate_NotFound(t *testing.T) {
	svc, _ := setupTestPeriodService()

	if err := svc.Activate(context.Background(), "ghost", "admin-1"); !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("期望 ErrPeriodNotFound，实际: %v", err)
	}
}

func TestPeriodService_GetCurrent_None(t *testing.T) {
	svc, _ := setupTestPeriodService()

	if _, err := svc.GetCurrent(context.Background()); !errors.Is(err, ErrNoActivePeriod) {
		t.Errorf("期望 ErrNoActivePeriod，实际: %v", err)
	}
}

func TestPeriodService_Update_RevalidatesDates(t *testing.T) {
	svc, mocks := setupTestPeriodService()
	mocks.periods.add("p1", "2026-10-26", "2027-01-11", false)

	uts := "2027-01-20"
	_, err := svc.Update(context.Background(), "p1", &dto.UpdatePeriodRequest{UTSDate: &uts}, "admin-1")
	if !errors.Is(err, ErrPeriodDateInvalid) {
		t.Errorf("UTS 晚于 UAS 应失败，实际: %v", err)
	}
}

func TestPeriodService_Delete_InUse(t *testing.T) {
	svc, mocks := setupTestPeriodService()
	mocks.periods.add("p1", "2026-10-26", "2027-01-11", false)
	mocks.theses.Create(context.Background(), &model.ThesisProject{ThesisID: "th-1", PeriodID: "p1", Tipe: "TA1"}, nil)

	if err := svc.Delete(context.Background(), "p1", "admin-1"); !errors.Is(err, ErrPeriodInUse) {
		t.Errorf("期望 ErrPeriodInUse，实际: %v", err)
	}
}
