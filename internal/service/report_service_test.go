package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

func newReportTest() *reportService {
	return &reportService{
		logger: zap.NewNop(),
		now: func() time.Time {
			return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		},
	}
}

func testSummaries() []model.MonthlySummary {
	return []model.MonthlySummary{
		{CardID: "C1", Account: "A1", Name: "王", Class: "早班", Month: "01",
			Days: []string{"05", "20"}, OnList: true},
		{CardID: "C2", Account: "B2", Name: "李", Class: "晚班", Month: "01",
			Days: []string{"03"}},
		{CardID: "C3", Account: "D3", Name: "陈", Class: "", Month: "02",
			Days: []string{"10"}},
	}
}

func TestReportService_WriteNightMealCSV(t *testing.T) {
	dir := t.TempDir()
	svc := newReportTest()

	paths, err := svc.WriteNightMealCSV(context.Background(), testSummaries(), dir)
	if err != nil {
		t.Fatalf("输出 CSV 失败: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("期望 3 份班别档案，实际 %d: %v", len(paths), paths)
	}

	morning := filepath.Join(dir, "早班_night_meal_records.csv")
	data, err := os.ReadFile(morning)
	if err != nil {
		t.Fatalf("读取 %s 失败: %v", morning, err)
	}
	content := string(data)
	if !strings.HasPrefix(content, utf8BOM) {
		t.Errorf("CSV 应以 UTF-8 BOM 开头")
	}
	if !strings.Contains(content, "卡號,公務帳號,姓名,月份,有記錄的總共天數,日期列表") {
		t.Errorf("表头不符:\n%s", content)
	}
	if !strings.Contains(content, `C1,A1,王,01,2,"05, 20"`) {
		t.Errorf("资料行不符:\n%s", content)
	}

	// 空班别归入 未分班 档案
	if _, err := os.Stat(filepath.Join(dir, "未分班_night_meal_records.csv")); err != nil {
		t.Errorf("未分班档案缺失: %v", err)
	}
}

func TestReportService_WriteNightMealHTML(t *testing.T) {
	dir := t.TempDir()
	svc := newReportTest()

	path, err := svc.WriteNightMealHTML(context.Background(), testSummaries(), dir)
	if err != nil {
		t.Fatalf("输出总表失败: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取总表失败: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "早班 1月夜點紀錄") {
		t.Errorf("缺少班别月份标题")
	}
	if !strings.Contains(content, "未分班 2月夜點紀錄") {
		t.Errorf("空班别应以 未分班 呈现")
	}
	// 清单上的人员姓名标红加星号
	if !strings.Contains(content, `<td class="driver-name">* 王</td>`) {
		t.Errorf("清单人员未高亮")
	}
	if strings.Contains(content, `<td class="driver-name">* 李</td>`) {
		t.Errorf("非清单人员不应高亮")
	}
	// 有记录的日期填实心格
	if !strings.Contains(content, `<div class="date-box filled">05</div>`) {
		t.Errorf("缺少实心日期格")
	}
	// 2024-01-03 为周三、2024-01-06 为周六，栏位底色按星期标注
	if !strings.Contains(content, `<th class="wed-sun-col">03</th>`) {
		t.Errorf("周三栏位底色缺失")
	}
	if !strings.Contains(content, `<th class="sat-col">06</th>`) {
		t.Errorf("周六栏位底色缺失")
	}
}

func TestBuildClassTables_DaysPerMonth(t *testing.T) {
	items := []model.MonthlySummary{
		{CardID: "C1", Account: "A1", Name: "王", Class: "早班", Month: "02", Days: []string{"10"}},
	}
	tables := buildClassTables("早班", items, 2024)
	if len(tables) != 1 {
		t.Fatalf("期望 1 张月表，实际 %d", len(tables))
	}
	// 2024 为闰年
	if got := len(tables[0].DayHeads); got != 29 {
		t.Errorf("2024 年 2 月应有 29 天，实际 %d", got)
	}
	if got := len(tables[0].Rows[0].Cells); got != 29 {
		t.Errorf("行格数应与天数一致，实际 %d", got)
	}
}

func TestGroupByClass_KeepsOrder(t *testing.T) {
	groups := groupByClass([]model.MonthlySummary{
		{Class: "晚班"}, {Class: "早班"}, {Class: "晚班"},
	})
	if len(groups) != 2 {
		t.Fatalf("期望 2 组，实际 %d", len(groups))
	}
	if groups[0].class != "晚班" || groups[1].class != "早班" {
		t.Errorf("分组应保持首见顺序: %v", groups)
	}
	if len(groups[0].items) != 2 {
		t.Errorf("晚班组应有 2 笔，实际 %d", len(groups[0].items))
	}
}
