package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
	"github.com/AnimeggUnity/punchcard-data-tool/pkg/rocdate"
)

// PunchQueryService 打卡记录查询：
// 按 MM-DD 捞出整合表中当日的全部打卡，逐班别输出 HTML 与 CSV；
// 或输出全部日期范围内按卡号分组的完整打卡总表。
type PunchQueryService interface {
	// Export 输出指定日期（MM-DD，空值取今天）的打卡记录，
	// 返回 HTML 与 CSV 档案路径
	Export(ctx context.Context, monthDay, outputDir string) (string, string, error)
	// ExportAll 输出整合表全部日期范围的打卡记录总表（按卡号分组，
	// 每人补满从最早到最晚日期的每一天），返回 HTML 档案路径
	ExportAll(ctx context.Context, outputDir string) (string, error)
}

type punchQueryService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewPunchQueryService 创建 PunchQueryService 实例
func NewPunchQueryService(repo *repository.Repository, logger *zap.Logger) PunchQueryService {
	return &punchQueryService{repo: repo, logger: logger, now: time.Now}
}

// ── 渲染用中间结构 ──

type punchSpan struct {
	Class string // timestamp-odd / timestamp-even
	Text  string
}

type punchRow struct {
	CardID  string
	Account string
	Name    string
	Count   int
	Times   []punchSpan
}

type punchSection struct {
	Class string
	Rows  []punchRow
}

type punchPage struct {
	Date     string
	Sections []punchSection
}

// ── 完整总表渲染用中间结构 ──

type historyRow struct {
	Date    string
	Weekday string
	Count   int
	Times   []punchSpan
}

type historyGroup struct {
	CardID   string
	Accounts string // 同卡号下出现过的公務帳號，以 、 连接
	Names    string
	Classes  string
	Rows     []historyRow
}

type historyPage struct {
	Groups []historyGroup
}

var (
	punchRecordTpl  = template.Must(template.New("punchrecord").Parse(punchRecordTemplate))
	punchHistoryTpl = template.Must(template.New("punchhistory").Parse(punchHistoryTemplate))
)

func (s *punchQueryService) Export(ctx context.Context, monthDay, outputDir string) (string, string, error) {
	if monthDay == "" {
		monthDay = s.now().Format("01-02")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	rows, err := s.repo.Integrated.ListByMonthDay(ctx, monthDay)
	if err != nil {
		return "", "", fmt.Errorf("查询 %s 的打卡记录失败: %w", monthDay, err)
	}

	page := buildPunchPage(monthDay, rows)

	htmlPath := filepath.Join(outputDir, "punch_record_"+monthDay+".html")
	if err := s.writeHTML(htmlPath, page); err != nil {
		return "", "", err
	}
	csvPath := filepath.Join(outputDir, "punch_record_"+monthDay+".csv")
	if err := s.writeCSV(csvPath, page); err != nil {
		return "", "", err
	}

	s.logger.Info("打卡记录已输出",
		zap.String("date", monthDay),
		zap.Int("records", len(rows)),
		zap.String("html", htmlPath),
		zap.String("csv", csvPath),
	)
	return htmlPath, csvPath, nil
}

func (s *punchQueryService) ExportAll(ctx context.Context, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	rows, err := s.repo.Integrated.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("查询全部打卡记录失败: %w", err)
	}

	page := buildHistoryPage(rows)

	path := filepath.Join(outputDir, "punch_by_account.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建 HTML 档案失败: %w", err)
	}
	defer f.Close()

	if err := punchHistoryTpl.Execute(f, page); err != nil {
		return "", fmt.Errorf("渲染打卡记录总表失败: %w", err)
	}

	s.logger.Info("打卡记录总表已输出",
		zap.Int("records", len(rows)),
		zap.Int("groups", len(page.Groups)),
		zap.String("html", path),
	)
	return path, nil
}

// weekdayNames 星期的中文单字，索引对应 time.Weekday（周日为 0）
var weekdayNames = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// buildHistoryPage 将全部整合行转为按卡号分组的完整总表结构。
// 每组补满整个数据集日期范围内的每一天，无打卡的日子次数为 0；
// 同卡号下出现过的帐号/姓名/班别在组标题中并列呈现。
func buildHistoryPage(rows []model.IntegratedPunch) historyPage {
	type cardData struct {
		accounts []string
		names    []string
		classes  []string
		byDate   map[string][]punchSpan
	}

	var (
		minDate, maxDate time.Time
		haveRange        bool
	)
	cards := make(map[string]*cardData)
	var cardOrder []string

	for i := range rows {
		row := &rows[i]

		d, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			// 未正规化成功的日期无法排进日历，整行略过
			continue
		}
		if !haveRange || d.Before(minDate) {
			minDate = d
		}
		if !haveRange || d.After(maxDate) {
			maxDate = d
		}
		haveRange = true

		cd, ok := cards[row.CardID]
		if !ok {
			cd = &cardData{byDate: make(map[string][]punchSpan)}
			cards[row.CardID] = cd
			cardOrder = append(cardOrder, row.CardID)
		}
		cd.accounts = appendUnique(cd.accounts, row.Account)
		cd.names = appendUnique(cd.names, row.Name)
		cd.classes = appendUnique(cd.classes, classLabel(row.Class))
		if _, dup := cd.byDate[row.Date]; !dup {
			cd.byDate[row.Date] = punchSpans(row.Times)
		}
	}

	page := historyPage{}
	if !haveRange {
		return page
	}

	for _, card := range cardOrder {
		cd := cards[card]
		g := historyGroup{
			CardID:   card,
			Accounts: strings.Join(cd.accounts, "、"),
			Names:    strings.Join(cd.names, "、"),
			Classes:  strings.Join(cd.classes, "、"),
		}
		for d := minDate; !d.After(maxDate); d = d.AddDate(0, 0, 1) {
			label := d.Format("2006-01-02")
			spans := cd.byDate[label]
			g.Rows = append(g.Rows, historyRow{
				Date:    label,
				Weekday: weekdayNames[int(d.Weekday())],
				Count:   len(spans),
				Times:   spans,
			})
		}
		page.Groups = append(page.Groups, g)
	}
	return page
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

// punchSpans 非空时间戳正规化后奇偶交错上色（进/出成对时一眼可辨）
func punchSpans(times []string) []punchSpan {
	var spans []punchSpan
	for _, t := range times {
		if t == "" {
			continue
		}
		cls := "timestamp-odd"
		if len(spans)%2 == 1 {
			cls = "timestamp-even"
		}
		spans = append(spans, punchSpan{Class: cls, Text: rocdate.NormalizeTime(t)})
	}
	return spans
}

// buildPunchPage 将整合行转为逐班别的渲染结构
func buildPunchPage(monthDay string, rows []model.IntegratedPunch) punchPage {
	page := punchPage{Date: monthDay}
	idx := make(map[string]int)

	for i := range rows {
		row := &rows[i]
		spans := punchSpans(row.Times)

		pr := punchRow{
			CardID:  row.CardID,
			Account: row.Account,
			Name:    row.Name,
			Count:   len(spans),
			Times:   spans,
		}

		label := classLabel(row.Class)
		si, ok := idx[label]
		if !ok {
			si = len(page.Sections)
			idx[label] = si
			page.Sections = append(page.Sections, punchSection{Class: label})
		}
		page.Sections[si].Rows = append(page.Sections[si].Rows, pr)
	}
	return page
}

func (s *punchQueryService) writeHTML(path string, page punchPage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 HTML 档案失败: %w", err)
	}
	defer f.Close()

	if err := punchRecordTpl.Execute(f, page); err != nil {
		return fmt.Errorf("渲染打卡记录失败: %w", err)
	}
	return nil
}

func (s *punchQueryService) writeCSV(path string, page punchPage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 CSV 档案失败: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"班別", "卡號", "公務帳號", "姓名", "打卡次數", "所有時間戳記"}); err != nil {
		return err
	}
	for _, sec := range page.Sections {
		for _, row := range sec.Rows {
			joined := ""
			for i, sp := range row.Times {
				if i > 0 {
					joined += ", "
				}
				joined += sp.Text
			}
			rec := []string{sec.Class, row.CardID, row.Account, row.Name, strconv.Itoa(row.Count), joined}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入 CSV 失败: %w", err)
	}
	return nil
}

const punchRecordTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>打卡記錄 - {{.Date}}</title>
<style>
    .punch-record-table {
        width: 100%;
        border-collapse: collapse;
        margin: 20px 0;
    }
    .punch-record-table th, .punch-record-table td {
        border: 1px solid #ddd;
        padding: 8px;
        text-align: center;
    }
    .punch-record-table th {
        background-color: #f2f2f2;
        font-weight: bold;
    }
    .punch-record-table tr:nth-child(even) {
        background-color: #f9f9f9;
    }
    .punch-record-table tr:hover {
        background-color: #e0e0e0;
    }
    .punch-record-table td.timestamp-col {
        text-align: left;
    }
    .timestamp-odd {
        color: blue;
    }
    .timestamp-even {
        color: purple;
    }
    body {
       font-family: sans-serif;
    }
    h2 {
        text-align: center;
        color: #333;
    }
</style>
</head>
<body>
{{$date := .Date}}{{range .Sections}}<h2>{{.Class}} - {{$date}} 打卡記錄</h2>
<table class="punch-record-table">
<thead>
<tr><th>卡號</th><th>公務帳號</th><th>姓名</th><th>打卡次數</th><th>時間戳記</th></tr>
</thead>
<tbody>
{{range .Rows}}<tr><td>{{.CardID}}</td><td>{{.Account}}</td><td>{{.Name}}</td><td>{{.Count}}</td><td class="timestamp-col">{{range $i, $t := .Times}}{{if $i}} {{end}}<span class="{{$t.Class}}">{{$t.Text}}</span>{{end}}</td></tr>
{{end}}</tbody>
</table>
{{end}}</body>
</html>
`

const punchHistoryTemplate = `<!DOCTYPE html>
<html>
<head>
<title>打卡記錄總表（以卡號分組）</title>
<meta charset="utf-8">
<style>
    .account-group {
        border: 2px solid #007bff;
        border-radius: 5px;
        margin: 15px 0;
        background: #f8f9fa;
    }
    .account-header {
        padding: 12px;
        background: #007bff;
        color: white;
        font-weight: bold;
        display: grid;
        grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
        gap: 10px;
    }
    .header-item {
        white-space: nowrap;
        overflow: hidden;
        text-overflow: ellipsis;
    }
    .punch-table {
        width: 100%;
        border-collapse: collapse;
        table-layout: fixed;
    }
    .punch-table th, .punch-table td {
        padding: 8px;
        border: 1px solid #dee2e6;
    }
    .punch-table th {
        background: #e9ecef;
        text-align: center;
    }
    .punch-table td {
        word-wrap: break-word;
    }
    .punch-table td:not(.timestamp-col) {
        text-align: center;
    }
    .timestamp-col {
        text-align: left;
    }
    .timestamp-odd { color: #1e88e5; }
    .timestamp-even { color: #d81b60; }
    .search-box {
        margin: 20px;
        text-align: center;
    }
    #searchInput {
        padding: 8px 15px;
        width: 300px;
        border-radius: 20px;
        border: 2px solid #007bff;
    }
</style>
</head>
<body>
<h2 style="text-align:center; color:#2c3e50;">打卡記錄總表</h2>
<div class="search-box">
    <input type="text" id="searchInput" placeholder="輸入卡號/公務帳號/姓名/班別..." onkeyup="filterGroups()">
</div>
<div id="content">
{{range .Groups}}<div class="account-group">
    <div class="account-header">
        <div class="header-item">卡號：{{.CardID}}</div>
        <div class="header-item">公務帳號：{{.Accounts}}</div>
        <div class="header-item">姓名：{{.Names}}</div>
        <div class="header-item">班別：{{.Classes}}</div>
    </div>
    <table class="punch-table">
        <colgroup>
            <col style="width: 10%;">
            <col style="width: 5%;">
            <col style="width: 5%;">
            <col style="width: 80%;">
        </colgroup>
        <thead>
            <tr><th>日期</th><th>星期</th><th>打卡次數</th><th>時間戳記</th></tr>
        </thead>
        <tbody>
        {{range .Rows}}<tr><td>{{.Date}}</td><td>{{.Weekday}}</td><td>{{.Count}}</td><td class="timestamp-col">{{range $i, $t := .Times}}{{if $i}} {{end}}<span class="{{$t.Class}}">{{$t.Text}}</span>{{end}}</td></tr>
        {{end}}</tbody>
    </table>
</div>
{{end}}</div>
<script>
function filterGroups() {
    const searchTerm = document.getElementById('searchInput').value.toUpperCase();
    const groups = document.getElementsByClassName('account-group');

    Array.from(groups).forEach(group => {
        const headerText = group.querySelector('.account-header').innerText.toUpperCase();
        group.style.display = headerText.includes(searchTerm) ? "block" : "none";
    });
}
</script>
</body>
</html>
`
