package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/internal/dto"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/progress"
	"thesis-guidance/backend/internal/repository"
)

// ── 进度模块业务错误 ──

var (
	ErrExportNoTheses     = errors.New("该学期暂无论文项目")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ProgressService 指导进度业务接口
//
// 进度为派生数据，每次请求根据已完成会话实时计算，不落库
type ProgressService interface {
	// ForThesis 计算单个论文项目的进度（管理员或参与者）
	ForThesis(ctx context.Context, thesisID, userID, role string) (*dto.ProgressResponse, error)
	// Mine 学生自己所有论文项目的进度
	Mine(ctx context.Context, studentID string) ([]dto.ProgressResponse, error)
	// Export 导出学期进度报表；导师仅导出自己指导的论文
	Export(ctx context.Context, periodID, userID, role string) (*bytes.Buffer, string, error)
}

type progressService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProgressService 创建 ProgressService 实例
func NewProgressService(repo *repository.Repository, logger *zap.Logger) ProgressService {
	return &progressService{repo: repo, logger: logger}
}

func (s *progressService) ForThesis(ctx context.Context, thesisID, userID, role string) (*dto.ProgressResponse, error) {
	thesis, err := s.repo.Thesis.GetByID(ctx, thesisID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThesisNotFound
		}
		s.logger.Error("查询论文项目失败", zap.String("id", thesisID), zap.Error(err))
		return nil, err
	}
	if role != model.RoleAdmin && !thesis.IsParticipant(userID) {
		return nil, ErrThesisForbidden
	}

	list, err := s.compute(ctx, []model.ThesisProject{*thesis})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *progressService) Mine(ctx context.Context, studentID string) ([]dto.ProgressResponse, error) {
	theses, _, err := s.repo.Thesis.List(ctx, repository.ThesisFilter{StudentID: studentID}, 0, 0)
	if err != nil {
		s.logger.Error("查询学生论文失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	return s.compute(ctx, theses)
}

// compute 一次性取出全部已完成会话，按论文分组后统计
func (s *progressService) compute(ctx context.Context, theses []model.ThesisProject) ([]dto.ProgressResponse, error) {
	result := make([]dto.ProgressResponse, 0, len(theses))
	if len(theses) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(theses))
	for i := range theses {
		ids = append(ids, theses[i].ThesisID)
	}
	sessions, err := s.repo.Session.ListCompletedByTheses(ctx, ids)
	if err != nil {
		s.logger.Error("查询已完成会话失败", zap.Error(err))
		return nil, err
	}
	dates := make(map[string][]time.Time, len(theses))
	for i := range sessions {
		dates[sessions[i].ThesisID] = append(dates[sessions[i].ThesisID], sessions[i].ScheduledDate)
	}

	for i := range theses {
		t := &theses[i]
		if t.Period == nil {
			return nil, fmt.Errorf("论文 %s 缺少学期信息", t.ThesisID)
		}
		record, err := progress.Compute(progress.ThesisType(t.Tipe), dates[t.ThesisID], t.Period.UTSDate, t.Period.UASDate)
		if err != nil {
			return nil, err
		}
		result = append(result, dto.ProgressResponse{
			ThesisID: t.ThesisID,
			Judul:    t.Judul,
			Student:  toUserBrief(t.Student),
			Period:   toPeriodBrief(t.Period),
			Record:   record,
		})
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════
// Export — 导出学期进度报表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 单 Sheet "指导进度"
//   - 标题行：学期名称 + UTS / UAS 日期
//   - 列：序号 | NIM | 姓名 | 论文题目 | 类型 | 导师 | UTS前 | UTS-UAS | 未计入 | 可毕业
//   - 未达标的阶段单元格标红
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var exportHeaders = []string{"序号", "NIM", "姓名", "论文题目", "类型", "导师", "UTS前", "UTS-UAS", "未计入", "可毕业"}

func (s *progressService) Export(ctx context.Context, periodID, userID, role string) (*bytes.Buffer, string, error) {
	// 1. 学期
	period, err := s.repo.Period.GetByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrPeriodNotFound
		}
		s.logger.Error("查询学期失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 论文范围
	filter := repository.ThesisFilter{PeriodID: periodID}
	if role == model.RoleAdvisor {
		filter.AdvisorID = userID
	}
	theses, _, err := s.repo.Thesis.List(ctx, filter, 0, 0)
	if err != nil {
		s.logger.Error("查询论文列表失败", zap.Error(err))
		return nil, "", err
	}
	if len(theses) == 0 {
		return nil, "", ErrExportNoTheses
	}

	// 3. 计算进度
	records, err := s.compute(ctx, theses)
	if err != nil {
		return nil, "", err
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "指导进度"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{6, 14, 20, 40, 8, 30, 10, 10, 8, 10}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	failStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 指导进度 (UTS %s / UAS %s)",
		period.Name, period.UTSDate.Format("2006-01-02"), period.UASDate.Format("2006-01-02")))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))

	// 表头
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(exportHeaders)-1), 2), headerStyle)

	// 数据行（records 与 theses 同序）
	for i, rec := range records {
		row := 3 + i
		t := &theses[i]

		nim, name := "", ""
		if t.Student != nil {
			nim, name = t.Student.IdentityNumber, t.Student.Name
		}
		advisors := make([]string, 0, len(t.Advisors))
		for _, a := range t.Advisors {
			advisors = append(advisors, a.Name)
		}
		graduate := "否"
		if rec.CanGraduate {
			graduate = "是"
		}

		values := []interface{}{
			i + 1,
			nim,
			name,
			rec.Judul,
			string(rec.ThesisType),
			strings.Join(advisors, "、"),
			fmt.Sprintf("%d/%d", rec.CompletedBeforeUTS, rec.RequiredBeforeUTS),
			fmt.Sprintf("%d/%d", rec.CompletedBeforeUAS, rec.RequiredBeforeUAS),
			rec.Uncounted,
			graduate,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		if !rec.MeetsUTSRequirement {
			f.SetCellStyle(sheetName, cell(colName(6), row), cell(colName(6), row), failStyle)
		}
		if !rec.MeetsUASRequirement {
			f.SetCellStyle(sheetName, cell(colName(7), row), cell(colName(7), row), failStyle)
		}
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("导出进度报表",
		zap.String("period_id", periodID),
		zap.String("by", userID),
		zap.Int("rows", len(records)),
	)
	filename := fmt.Sprintf("指导进度_%s.xlsx", period.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

// colName 0 基列号 → Excel 列名
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
