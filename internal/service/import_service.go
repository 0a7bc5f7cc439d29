package service

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
	pkgerrors "github.com/AnimeggUnity/punchcard-data-tool/pkg/errors"
	"github.com/AnimeggUnity/punchcard-data-tool/pkg/rocdate"
)

// 来源工作表的原始表头（繁体，与汇出档一致）
const (
	colSequence = "序號"
	colAccount  = "公務帳號"
	colDate     = "刷卡日期"
	colTime     = "刷卡時間"
	colCardID   = "卡號"
	colName     = "姓名"
	colClass    = "班別"
)

// punchHeaderSkipRows 刷卡资料工作表开头的元信息行数（表头在其后一行）
const punchHeaderSkipRows = 4

// ImportService 资料整理业务接口：
// 读取刷卡资料与班表工作簿、清洗后落库，再对 punch 表做日期/时间正规化。
type ImportService interface {
	// Run 执行完整汇入流程，返回累计处理的行数
	Run(ctx context.Context) (int, error)
}

type importService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) ImportService {
	return &importService{cfg: cfg, repo: repo, logger: logger}
}

func (s *importService) Run(ctx context.Context) (int, error) {
	total := 0

	// 刷卡资料档缺失是致命错误，班表档缺失仅告警
	if _, err := os.Stat(s.cfg.Data.PunchPath); err != nil {
		return 0, fmt.Errorf("刷卡资料档 %s: %w", s.cfg.Data.PunchPath, pkgerrors.ErrMissingSourceFile)
	}

	n, err := s.importPunchWorkbook(ctx)
	if err != nil {
		return total, err
	}
	total += n

	n, err = s.importRosterWorkbook(ctx)
	if err != nil {
		return total, err
	}
	total += n

	if err := s.normalizePunchDateTimes(ctx); err != nil {
		return total, err
	}

	return total, nil
}

// importPunchWorkbook 逐 Sheet 清洗刷卡资料并写入 punch 表。
//
// 每个 Sheet 的结果整表覆盖前一个 Sheet（最后一个 Sheet 胜出）。
// 多 Sheet 工作簿是否应累积尚无定论，既有下游依赖覆盖语义，此处保留原行为；
// 累计行数仍按全部 Sheet 回报，供操作者核对。
func (s *importService) importPunchWorkbook(ctx context.Context) (int, error) {
	f, err := excelize.OpenFile(s.cfg.Data.PunchPath)
	if err != nil {
		return 0, fmt.Errorf("开启刷卡资料档失败: %w", err)
	}
	defer f.Close()

	total := 0
	for _, sheet := range f.GetSheetList() {
		raw, err := f.GetRows(sheet)
		if err != nil {
			s.logger.Warn("读取工作表失败，跳过",
				zap.String("sheet", sheet), zap.Error(err))
			continue
		}

		punches := cleanPunchSheet(raw)
		if err := s.repo.Punch.Replace(ctx, punches); err != nil {
			return total, fmt.Errorf("写入 punch 表失败: %w", err)
		}
		total += len(punches)
		s.logger.Info("处理工作表完成",
			zap.String("sheet", sheet),
			zap.Int("rows", len(punches)),
			zap.Int("cumulative", total),
		)
	}
	return total, nil
}

// importRosterWorkbook 逐 Sheet 读取班表并追加到 shift_class 表，
// 不跳行、不过滤、不去重。
func (s *importService) importRosterWorkbook(ctx context.Context) (int, error) {
	if _, err := os.Stat(s.cfg.Data.RosterPath); err != nil {
		s.logger.Warn("班表资料档不存在，跳过处理",
			zap.String("path", s.cfg.Data.RosterPath))
		return 0, nil
	}

	f, err := excelize.OpenFile(s.cfg.Data.RosterPath)
	if err != nil {
		s.logger.Warn("开启班表资料档失败，跳过处理", zap.Error(err))
		return 0, nil
	}
	defer f.Close()

	total := 0
	for _, sheet := range f.GetSheetList() {
		raw, err := f.GetRows(sheet)
		if err != nil {
			s.logger.Warn("读取班表工作表失败，跳过",
				zap.String("sheet", sheet), zap.Error(err))
			continue
		}

		entries := parseRosterSheet(raw)
		if err := s.repo.ShiftClass.Append(ctx, entries); err != nil {
			return total, fmt.Errorf("写入 shift_class 表失败: %w", err)
		}
		total += len(entries)
		s.logger.Info("班表工作表已追加",
			zap.String("sheet", sheet),
			zap.Int("rows", len(entries)),
		)
	}
	return total, nil
}

// normalizePunchDateTimes 对已落库的 punch 表做第二阶段正规化：
// 民国年日期转西元 ISO、数字串时间转 HH:MM:SS。
// 汇入阶段只做字符串化，正规化独立成一遍，保持原两阶段流程。
func (s *importService) normalizePunchDateTimes(ctx context.Context) error {
	exists, err := s.repo.Punch.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Warn("punch 表不存在，无法进行日期和时间格式修正")
		return nil
	}

	rows, err := s.repo.Punch.List(ctx)
	if err != nil {
		return fmt.Errorf("读取 punch 表失败: %w", err)
	}

	var updates []model.PunchUpdate
	for _, p := range rows {
		date := rocdate.NormalizeDate(p.Date)
		t := rocdate.NormalizeTime(p.Time)
		if date != p.Date || t != p.Time {
			updates = append(updates, model.PunchUpdate{ID: p.ID, Date: date, Time: t})
		}
	}
	if len(updates) > 0 {
		if err := s.repo.Punch.UpdateDateTimes(ctx, updates); err != nil {
			return fmt.Errorf("回写正规化结果失败: %w", err)
		}
	}
	s.logger.Info("日期和时间格式修正已完成", zap.Int("updated", len(updates)))
	return nil
}

// ── Sheet 清洗 ──────────────────────────────────────────────

// cleanPunchSheet 把刷卡资料工作表的原始格子清洗为 Punch 列表：
//  1. 跳过前 4 行元信息，下一行升格为表头并从数据中剔除
//  2. 丢弃表头为空的栏位
//  3. 仅保留 序號 可解析为正数的行（无 序號 栏时跳过此过滤）
//  4. 丢弃过滤后整栏皆空的栏位
//  5. 日期/时间仅字符串化，不在此处正规化
func cleanPunchSheet(raw [][]string) []model.Punch {
	if len(raw) < punchHeaderSkipRows+2 {
		return nil
	}
	headers := raw[punchHeaderSkipRows]
	data := raw[punchHeaderSkipRows+1:]

	// excelize 会裁掉行尾空格子，先补齐到表头宽度
	width := len(headers)
	rows := make([][]string, 0, len(data))
	for _, r := range data {
		row := make([]string, width)
		copy(row, r)
		rows = append(rows, row)
	}

	headers, rows = dropColumns(headers, rows, func(i int) bool {
		return headers[i] == ""
	})

	if seqIdx := indexOf(headers, colSequence); seqIdx >= 0 {
		kept := rows[:0]
		for _, row := range rows {
			if isPositiveNumber(row[seqIdx]) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}

	if len(rows) > 0 {
		headers, rows = dropColumns(headers, rows, func(i int) bool {
			for _, row := range rows {
				if row[i] != "" {
					return false
				}
			}
			return true
		})
	}

	seqIdx := indexOf(headers, colSequence)
	accIdx := indexOf(headers, colAccount)
	dateIdx := indexOf(headers, colDate)
	timeIdx := indexOf(headers, colTime)

	punches := make([]model.Punch, 0, len(rows))
	for _, row := range rows {
		p := model.Punch{
			Account: cell(row, accIdx),
			Date:    cell(row, dateIdx),
			Time:    cell(row, timeIdx),
		}
		if seqIdx >= 0 {
			if v, err := strconv.ParseFloat(row[seqIdx], 64); err == nil {
				p.Sequence = int64(v)
			}
		}
		punches = append(punches, p)
	}
	return punches
}

// parseRosterSheet 班表工作表首行为表头，其余行按栏位名对位；
// 缺失的栏位以空字符串补齐，不视为错误。
func parseRosterSheet(raw [][]string) []model.ShiftClass {
	if len(raw) < 2 {
		return nil
	}
	headers := raw[0]
	accIdx := indexOf(headers, colAccount)
	cardIdx := indexOf(headers, colCardID)
	nameIdx := indexOf(headers, colName)
	classIdx := indexOf(headers, colClass)

	entries := make([]model.ShiftClass, 0, len(raw)-1)
	for _, row := range raw[1:] {
		entries = append(entries, model.ShiftClass{
			Account: cell(row, accIdx),
			CardID:  cell(row, cardIdx),
			Name:    cell(row, nameIdx),
			Class:   cell(row, classIdx),
		})
	}
	return entries
}

// dropColumns 移除 drop(i) 为 true 的栏位，返回新的表头与行
func dropColumns(headers []string, rows [][]string, drop func(i int) bool) ([]string, [][]string) {
	var keep []int
	for i := range headers {
		if !drop(i) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(headers) {
		return headers, rows
	}

	newHeaders := make([]string, len(keep))
	for j, i := range keep {
		newHeaders[j] = headers[i]
	}
	newRows := make([][]string, len(rows))
	for ri, row := range rows {
		newRow := make([]string, len(keep))
		for j, i := range keep {
			newRow[j] = row[i]
		}
		newRows[ri] = newRow
	}
	return newHeaders, newRows
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isPositiveNumber(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}
