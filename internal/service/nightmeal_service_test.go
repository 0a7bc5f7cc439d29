package service

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
)

func newNightMealTest(t *testing.T, integrated *mockIntegratedRepo) NightMealService {
	t.Helper()
	cfg := &config.Config{
		Report: config.ReportConfig{DefaultThreshold: "22:00:00"},
	}
	repo := &repository.Repository{Integrated: integrated}
	return NewNightMealService(cfg, repo, zap.NewNop())
}

// 整合表没有时间栏位时不中断运行，清算降级为空结果
func TestNightMealService_Evaluate_NoTimeColumns(t *testing.T) {
	svc := newNightMealTest(t, newMockIntegratedRepo())
	records, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("无时间栏位不应视为致命: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("期望空结果，实际 %d 笔", len(records))
	}
}

func TestNightMealService_Evaluate_NoIntegratedData(t *testing.T) {
	integrated := newMockIntegratedRepo()
	integrated.seed(nil, 2) // 表存在且有时间栏，但无任何行
	svc := newNightMealTest(t, integrated)
	records, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("整合表为空不应视为致命: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("期望空结果，实际 %d 笔", len(records))
	}
}

// 门槛为严格大于：恰好 22:00:00 不符合资格，22:00:01 符合
func TestNightMealService_Evaluate_StrictThreshold(t *testing.T) {
	integrated := newMockIntegratedRepo()
	integrated.seed([]model.IntegratedPunch{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"08:00:00", "22:00:00"}},
		{Account: "B2", CardID: "C2", Name: "李", Class: "早班", Date: "2024-01-05",
			Times: []string{"08:00:00", "22:00:01"}},
	}, 2)

	records, err := newNightMealTest(t, integrated).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 笔资格记录，实际 %d: %+v", len(records), records)
	}
	if records[0].Account != "B2" {
		t.Errorf("恰好等于门槛者不应入选: %+v", records[0])
	}
}

// 最后一次刷卡 = 从右向左首个非空时间；右侧补位的空栏不算
func TestNightMealService_Evaluate_LastNonNullPunch(t *testing.T) {
	integrated := newMockIntegratedRepo()
	integrated.seed([]model.IntegratedPunch{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"22:30:00", "", ""}},
	}, 3)

	records, err := newNightMealTest(t, integrated).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 笔资格记录，实际 %d", len(records))
	}
	rec := records[0]
	if rec.Month != "01" || rec.Day != "05" {
		t.Errorf("月份/日期拆解不符: %+v", rec)
	}
}

// 班表重复导致的同 (帐号, 日期) 多行只产出一笔
func TestNightMealService_Evaluate_DedupPerAccountDate(t *testing.T) {
	integrated := newMockIntegratedRepo()
	integrated.seed([]model.IntegratedPunch{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"22:30:00", "22:30:00"}},
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"22:30:00", "22:30:00"}},
	}, 2)

	records, err := newNightMealTest(t, integrated).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("同帐号同日期应去重为 1 笔，实际 %d", len(records))
	}
}

// 整合表残留未正规化的 4 位时间串时，比较前先转 HH:MM:SS
func TestNightMealService_Evaluate_NormalizesResidualTimes(t *testing.T) {
	integrated := newMockIntegratedRepo()
	integrated.seed([]model.IntegratedPunch{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"0800", "2200"}},
	}, 2)

	records, err := newNightMealTest(t, integrated).Evaluate(context.Background())
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	// "2200" 正规化为 22:00:00，不大于门槛
	if len(records) != 0 {
		t.Errorf("期望 0 笔资格记录，实际 %d: %+v", len(records), records)
	}
}

func TestNightMealService_Evaluate_AccountListHighlight(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "list.csv")
	content := "\xEF\xBB\xBF公務帳號\nA1\n"
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatalf("写入清单档案失败: %v", err)
	}

	integrated := newMockIntegratedRepo()
	integrated.seed([]model.IntegratedPunch{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班", Date: "2024-01-05",
			Times: []string{"22:30:00"}},
		{Account: "B2", CardID: "C2", Name: "李", Class: "早班", Date: "2024-01-05",
			Times: []string{"23:00:00"}},
	}, 1)

	cfg := &config.Config{
		Report: config.ReportConfig{DefaultThreshold: "22:00:00", ListPath: listPath},
	}
	repo := &repository.Repository{Integrated: integrated}
	svc := NewNightMealService(cfg, repo, zap.NewNop())

	records, err := svc.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	byAccount := make(map[string]bool)
	for _, rec := range records {
		byAccount[rec.Account] = rec.OnList
	}
	if !byAccount["A1"] || byAccount["B2"] {
		t.Errorf("清单标记不符: %v", byAccount)
	}
}

func TestNightMealService_Summarize(t *testing.T) {
	records := []model.EligibilityRecord{
		{CardID: "C1", Account: "A1", Name: "王", Class: "早班", Month: "01", Day: "20"},
		{CardID: "C1", Account: "A1", Name: "王", Class: "早班", Month: "01", Day: "05", OnList: true},
		{CardID: "C1", Account: "A1", Name: "王", Class: "早班", Month: "02", Day: "03"},
		{CardID: "C2", Account: "B2", Name: "李", Class: "晚班", Month: "01", Day: "05"},
	}

	svc := newNightMealTest(t, newMockIntegratedRepo())
	summaries := svc.Summarize(records)
	if len(summaries) != 3 {
		t.Fatalf("期望 3 笔汇总，实际 %d", len(summaries))
	}

	first := summaries[0]
	if first.Class != "早班" || first.Month != "01" {
		t.Fatalf("排序不符: %+v", first)
	}
	if !reflect.DeepEqual(first.Days, []string{"05", "20"}) {
		t.Errorf("日期列表应升序: %v", first.Days)
	}
	if first.DayCount() != 2 {
		t.Errorf("天数不符: %d", first.DayCount())
	}
	// 任一笔在清单上即整组标记
	if !first.OnList {
		t.Errorf("汇总应继承清单标记")
	}
}

// 全链路：正规化 + 整合 + 清算
func TestNightMealPipeline(t *testing.T) {
	ctx := context.Background()

	roster := newMockShiftClassRepo()
	_ = roster.Append(ctx, []model.ShiftClass{
		{Account: "A1", CardID: "C1", Name: "王", Class: "早班"},
	})
	punch := newMockPunchRepo(roster)
	_ = punch.Replace(ctx, []model.Punch{
		{Sequence: 1, Account: "A1", Date: "113-01-05", Time: "0800"},
		{Sequence: 2, Account: "A1", Date: "113-01-05", Time: "2230"},
	})
	integrated := newMockIntegratedRepo()
	repo := &repository.Repository{Punch: punch, ShiftClass: roster, Integrated: integrated}
	cfg := &config.Config{
		Report: config.ReportConfig{DefaultThreshold: "22:00:00"},
	}

	imp := NewImportService(cfg, repo, zap.NewNop()).(*importService)
	if err := imp.normalizePunchDateTimes(ctx); err != nil {
		t.Fatalf("正规化失败: %v", err)
	}

	if _, _, err := NewIntegrateService(repo, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("整合失败: %v", err)
	}

	records, err := NewNightMealService(cfg, repo, zap.NewNop()).Evaluate(ctx)
	if err != nil {
		t.Fatalf("清算失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("期望 1 笔资格记录，实际 %d", len(records))
	}
	rec := records[0]
	want := model.EligibilityRecord{
		CardID: "C1", Account: "A1", Name: "王", Class: "早班",
		Date: "2024-01-05", Month: "01", Day: "05",
	}
	if rec != want {
		t.Errorf("资格记录不符:\n实际 %+v\n期望 %+v", rec, want)
	}
}
