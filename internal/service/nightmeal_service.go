package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
	pkgerrors "github.com/AnimeggUnity/punchcard-data-tool/pkg/errors"
	"github.com/AnimeggUnity/punchcard-data-tool/pkg/rocdate"
)

// nightMealRule 单一班别的夜点规则
type nightMealRule struct {
	ClassName string
	// Threshold 夜点门槛 HH:MM:SS。最后一次刷卡严格晚于门槛才符合资格，
	// 恰好等于门槛不符合。
	Threshold string
}

// NightMealService 夜点清算业务接口。
// 评估器是 integrated_punch 上的纯派生：不持有任何持久状态，
// 去重集合按 (班别, 帐号) 作用域隔离。
type NightMealService interface {
	// Evaluate 对每个班别评估夜点资格，返回有序的资格记录序列。
	// 每个 (帐号, 日期) 至多一笔，首见者保留。
	Evaluate(ctx context.Context) ([]model.EligibilityRecord, error)
	// Summarize 将资格记录按 (卡号, 帐号, 姓名, 班别, 月份) 汇总为月度视图
	Summarize(records []model.EligibilityRecord) []model.MonthlySummary
}

type nightMealService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNightMealService 创建 NightMealService 实例
func NewNightMealService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) NightMealService {
	return &nightMealService{cfg: cfg, repo: repo, logger: logger}
}

func (s *nightMealService) Evaluate(ctx context.Context) ([]model.EligibilityRecord, error) {
	timeCols, err := s.repo.Integrated.TimeColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取时间栏位失败: %w", err)
	}
	// 整合表没有时间栏位或没有任何行时不视为致命：
	// 记警告后输出空结果，让报表端产出空档案（尽力而为的 ETL）
	if len(timeCols) == 0 {
		s.logger.Warn("夜点清算输出空结果", zap.Error(pkgerrors.ErrNoTimeColumns))
		return nil, nil
	}

	classes, err := s.repo.Integrated.DistinctClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取班别清单失败: %w", err)
	}
	if len(classes) == 0 {
		s.logger.Warn("夜点清算输出空结果", zap.Error(pkgerrors.ErrNoIntegratedData))
		return nil, nil
	}

	accountList := s.loadAccountList()

	var all []model.EligibilityRecord
	for _, class := range classes {
		rule := nightMealRule{
			ClassName: class,
			Threshold: s.cfg.Report.ThresholdFor(class),
		}
		s.logger.Info("处理班别",
			zap.String("class", rule.ClassName),
			zap.String("threshold", rule.Threshold),
		)

		rows, err := s.repo.Integrated.ListByClass(ctx, class)
		if err != nil {
			return nil, fmt.Errorf("读取班别 %q 的整合资料失败: %w", class, err)
		}
		all = append(all, s.evaluateClass(rows, rule, accountList)...)
	}

	s.logger.Info("夜点资格评估完成", zap.Int("records", len(all)))
	return all, nil
}

// evaluateClass 对单一班别的有序整合行评估夜点资格。
// 行序为 (卡号, 班别, 帐号, 姓名, 日期) 升序；
// processedDates 按帐号记录已产出的日期，吸收班表重复造成的同日重复行。
func (s *nightMealService) evaluateClass(
	rows []model.IntegratedPunch,
	rule nightMealRule,
	accountList map[string]bool,
) []model.EligibilityRecord {
	var records []model.EligibilityRecord
	processedDates := make(map[string]map[string]struct{})

	for i := range rows {
		row := &rows[i]
		if len(row.Date) < 10 {
			s.logger.Error("无效的日期格式", zap.String("date", row.Date))
			continue
		}

		last := row.LastPunch()
		if last == "" {
			continue
		}
		// 整合表中可能残留 6 位数字串形式的时间，比较前先正规化
		last = rocdate.NormalizeTime(last)
		if !(last > rule.Threshold) {
			continue
		}

		seen, ok := processedDates[row.Account]
		if !ok {
			seen = make(map[string]struct{})
			processedDates[row.Account] = seen
		}
		if _, dup := seen[row.Date]; dup {
			continue
		}
		seen[row.Date] = struct{}{}

		records = append(records, model.EligibilityRecord{
			CardID:  row.CardID,
			Account: row.Account,
			Name:    row.Name,
			Class:   row.Class,
			Date:    row.Date,
			Month:   row.Date[5:7],
			Day:     row.Date[8:10],
			OnList:  accountList[row.Account],
		})
	}
	return records
}

func (s *nightMealService) Summarize(records []model.EligibilityRecord) []model.MonthlySummary {
	type sumKey struct {
		card, account, name, class, month string
	}

	groups := make(map[sumKey]*model.MonthlySummary)
	var order []sumKey

	for _, rec := range records {
		k := sumKey{rec.CardID, rec.Account, rec.Name, rec.Class, rec.Month}
		g, ok := groups[k]
		if !ok {
			g = &model.MonthlySummary{
				CardID:  rec.CardID,
				Account: rec.Account,
				Name:    rec.Name,
				Class:   rec.Class,
				Month:   rec.Month,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.Days = append(g.Days, rec.Day)
		g.OnList = g.OnList || rec.OnList
	}

	summaries := make([]model.MonthlySummary, 0, len(order))
	for _, k := range order {
		g := groups[k]
		sort.Strings(g.Days)
		summaries = append(summaries, *g)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Class != summaries[j].Class {
			return summaries[i].Class < summaries[j].Class
		}
		if summaries[i].CardID != summaries[j].CardID {
			return summaries[i].CardID < summaries[j].CardID
		}
		return summaries[i].Month < summaries[j].Month
	})
	return summaries
}

// loadAccountList 读取比对清单 CSV（一个 公務帳號 栏）。
// 清单仅供报表高亮，读取失败降级为空集合，不中断清算。
func (s *nightMealService) loadAccountList() map[string]bool {
	result := make(map[string]bool)
	path := s.cfg.Report.ListPath
	if path == "" {
		return result
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("读取清单资料失败，使用空清单", zap.Error(err))
		return result
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil || len(rows) == 0 {
		s.logger.Warn("解析清单资料失败，使用空清单", zap.Error(err))
		return result
	}

	accIdx := 0
	for i, h := range rows[0] {
		if trimBOM(h) == colAccount {
			accIdx = i
			break
		}
	}
	for _, row := range rows[1:] {
		if accIdx < len(row) && row[accIdx] != "" {
			result[row[accIdx]] = true
		}
	}
	s.logger.Info("已读取清单资料", zap.Int("accounts", len(result)))
	return result
}

// trimBOM 去除 Excel 汇出 CSV 常见的 UTF-8 BOM 前缀
func trimBOM(s string) string {
	if len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF {
		return s[3:]
	}
	return s
}
