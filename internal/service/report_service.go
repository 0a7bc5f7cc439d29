package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

// utf8BOM 输出 CSV 带 BOM，Excel 直接开启时才能正确识别中文
const utf8BOM = "\xEF\xBB\xBF"

// ReportService 夜点报表输出接口。
//
// 输入只依赖清算结果的月度汇总序列，不触碰关系存储——
// 报表是已定案资料上的纯下游格式化，逐班别输出可以安全并行。
type ReportService interface {
	// WriteNightMealCSV 每个班别输出一份汇总 CSV，返回产出的档案路径
	WriteNightMealCSV(ctx context.Context, summaries []model.MonthlySummary, outputDir string) ([]string, error)
	// WriteNightMealHTML 输出全班别的月历格总表，返回档案路径
	WriteNightMealHTML(ctx context.Context, summaries []model.MonthlySummary, outputDir string) (string, error)
}

type reportService struct {
	logger *zap.Logger
	now    func() time.Time // 月历年份取运行当下年份，测试时可替换
}

// NewReportService 创建 ReportService 实例
func NewReportService(logger *zap.Logger) ReportService {
	return &reportService{logger: logger, now: time.Now}
}

// ── CSV ─────────────────────────────────────────────────────

func (s *reportService) WriteNightMealCSV(ctx context.Context, summaries []model.MonthlySummary, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	grouped := groupByClass(summaries)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		paths    []string
		firstErr error
	)
	// 逐班别并行输出：输入是只读的已定案汇总，各班别互不共享可变状态
	for _, g := range grouped {
		wg.Add(1)
		go func(class string, items []model.MonthlySummary) {
			defer wg.Done()
			path, err := s.writeClassCSV(class, items, outputDir)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			paths = append(paths, path)
		}(g.class, g.items)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *reportService) writeClassCSV(class string, items []model.MonthlySummary, outputDir string) (string, error) {
	path := filepath.Join(outputDir, classLabel(class)+"_night_meal_records.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建 CSV 档案失败: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"卡號", "公務帳號", "姓名", "月份", "有記錄的總共天數", "日期列表"}); err != nil {
		return "", err
	}
	for _, sm := range items {
		rec := []string{
			sm.CardID,
			sm.Account,
			sm.Name,
			sm.Month,
			strconv.Itoa(sm.DayCount()),
			joinDays(sm.Days),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("写入 CSV 失败: %w", err)
	}

	s.logger.Info("夜点 CSV 已输出",
		zap.String("class", classLabel(class)),
		zap.Int("rows", len(items)),
		zap.String("path", path),
	)
	return path, nil
}

// ── HTML 月历格 ─────────────────────────────────────────────

type calendarCell struct {
	TdClass  string
	BoxClass string
	Label    string
}

type calendarRow struct {
	CardID  string
	Account string
	Class   string
	Name    string
	OnList  bool
	Total   int
	Month   string
	Cells   []calendarCell
}

type dayHead struct {
	Label   string
	TdClass string
}

type calendarTable struct {
	Class    string
	Month    int
	DayHeads []dayHead
	Rows     []calendarRow
}

type nightMealPage struct {
	Tables []calendarTable
}

var nightMealTpl = template.Must(template.New("nightmeal").Parse(nightMealTemplate))

func (s *reportService) WriteNightMealHTML(ctx context.Context, summaries []model.MonthlySummary, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	year := s.now().Year()
	page := nightMealPage{}
	for _, g := range groupByClass(summaries) {
		page.Tables = append(page.Tables, buildClassTables(g.class, g.items, year)...)
	}

	path := filepath.Join(outputDir, "night_meal_records.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建 HTML 档案失败: %w", err)
	}
	defer f.Close()

	if err := nightMealTpl.Execute(f, page); err != nil {
		return "", fmt.Errorf("渲染夜点总表失败: %w", err)
	}

	s.logger.Info("夜点总表已输出",
		zap.Int("tables", len(page.Tables)),
		zap.String("path", path),
	)
	return path, nil
}

// buildClassTables 一个班别按月份各生成一张月历格表
func buildClassTables(class string, items []model.MonthlySummary, year int) []calendarTable {
	byMonth := make(map[string][]model.MonthlySummary)
	var months []string
	for _, sm := range items {
		if _, ok := byMonth[sm.Month]; !ok {
			months = append(months, sm.Month)
		}
		byMonth[sm.Month] = append(byMonth[sm.Month], sm)
	}
	sort.Strings(months)

	var tables []calendarTable
	for _, month := range months {
		m, err := strconv.Atoi(month)
		if err != nil || m < 1 || m > 12 {
			continue
		}
		numDays := daysInMonth(year, m)

		t := calendarTable{Class: classLabel(class), Month: m}
		for day := 1; day <= numDays; day++ {
			t.DayHeads = append(t.DayHeads, dayHead{
				Label:   fmt.Sprintf("%02d", day),
				TdClass: weekdayClass(year, m, day),
			})
		}

		for _, sm := range byMonth[month] {
			filled := make(map[string]struct{}, len(sm.Days))
			for _, d := range sm.Days {
				filled[d] = struct{}{}
			}

			row := calendarRow{
				CardID:  sm.CardID,
				Account: sm.Account,
				Class:   classLabel(sm.Class),
				Name:    sm.Name,
				OnList:  sm.OnList,
				Total:   sm.DayCount(),
				Month:   sm.Month,
			}
			for day := 1; day <= numDays; day++ {
				label := fmt.Sprintf("%02d", day)
				cell := calendarCell{
					TdClass:  weekdayClass(year, m, day),
					BoxClass: "date-box",
				}
				if _, ok := filled[label]; ok {
					cell.BoxClass = "date-box filled"
					cell.Label = label
				}
				row.Cells = append(row.Cells, cell)
			}
			t.Rows = append(t.Rows, row)
		}
		tables = append(tables, t)
	}
	return tables
}

// ── 辅助 ────────────────────────────────────────────────────

type classGroup struct {
	class string
	items []model.MonthlySummary
}

// groupByClass 按班别分组，保持输入顺序
func groupByClass(summaries []model.MonthlySummary) []classGroup {
	idx := make(map[string]int)
	var groups []classGroup
	for _, sm := range summaries {
		i, ok := idx[sm.Class]
		if !ok {
			i = len(groups)
			idx[sm.Class] = i
			groups = append(groups, classGroup{class: sm.Class})
		}
		groups[i].items = append(groups[i].items, sm)
	}
	return groups
}

// classLabel 未匹配班表的组在档名与报表中显示为 未分班
func classLabel(class string) string {
	if class == "" {
		return "未分班"
	}
	return class
}

func joinDays(days []string) string {
	out := ""
	for i, d := range days {
		if i > 0 {
			out += ", "
		}
		out += d
	}
	return out
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1).Day()
}

// weekdayClass 周三/周日与周六的栏位底色，对齐纸本签核表的视觉习惯
func weekdayClass(year, month, day int) string {
	switch time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Weekday() {
	case time.Wednesday, time.Sunday:
		return "wed-sun-col"
	case time.Saturday:
		return "sat-col"
	}
	return ""
}

const nightMealTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>夜點總表</title>
<style>
    .night-meal-table {
        width: 100%;
        border-collapse: collapse;
        margin: 20px 0;
    }
    .night-meal-table th, .night-meal-table td {
        border: 1px solid #ddd;
        padding: 8px;
        text-align: center;
    }
    .night-meal-table th {
        background-color: #f2f2f2;
        font-weight: bold;
    }
    .night-meal-table tr:nth-child(even) {
        background-color: #f9f9f9;
    }
    .night-meal-table tr:hover {
        background-color: #e0e0e0;
    }
    body {
       font-family: sans-serif;
    }
    h2 {
        text-align: center;
        color: #333;
    }
    .date-box {
        display: inline-block;
        width: 20px;
        height: 20px;
        line-height: 20px;
        border: 1px solid #ccc;
        margin: 2px;
        text-align: center;
    }
    .date-box.filled {
        background-color: #4CAF50;
        color: white;
        font-weight: bold;
    }
    .total-days {
        font-weight: bold;
        color: #4CAF50;
    }
    .wed-sun-col {
        background-color: #FFF3E0;
    }
    .sat-col {
        background-color: #F3E5F5;
    }
    .date-box.filled.wed-sun-col {
        background-color: #4CAF50;
    }
    .date-box.filled.sat-col {
        background-color: #4CAF50;
    }
    .driver-name {
        color: red;
    }
</style>
</head>
<body>
{{range .Tables}}<h2>{{.Class}} {{.Month}}月夜點紀錄</h2>
<table class="night-meal-table">
<thead>
<tr><th>卡號</th><th>公務帳號</th><th>班別</th><th>姓名</th><th>總天數</th><th>月份</th>{{range .DayHeads}}<th{{with .TdClass}} class="{{.}}"{{end}}>{{.Label}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr><td>{{.CardID}}</td><td>{{.Account}}</td><td>{{.Class}}</td>{{if .OnList}}<td class="driver-name">* {{.Name}}</td>{{else}}<td>{{.Name}}</td>{{end}}<td class="total-days">{{.Total}}</td><td>{{.Month}}</td>{{range .Cells}}<td{{with .TdClass}} class="{{.}}"{{end}}><div class="{{.BoxClass}}">{{.Label}}</div></td>{{end}}</tr>
{{end}}</tbody>
</table>
<br>
{{end}}</body>
</html>
`
