package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
	pkgerrors "github.com/AnimeggUnity/punchcard-data-tool/pkg/errors"
)

// IntegrateService 整合业务接口：
// punch 左连接 shift_class，按 (帐号, 日期, 班别) 分组收拢当日刷卡时间，
// 以全数据集最大打卡次数为宽度重建 integrated_punch 表。
type IntegrateService interface {
	// Run 执行整合，返回整合后的行数与时间栏位宽度
	Run(ctx context.Context) (int, int, error)
}

type integrateService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewIntegrateService 创建 IntegrateService 实例
func NewIntegrateService(repo *repository.Repository, logger *zap.Logger) IntegrateService {
	return &integrateService{repo: repo, logger: logger}
}

func (s *integrateService) Run(ctx context.Context) (int, int, error) {
	exists, err := s.repo.Punch.Exists(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !exists {
		return 0, 0, pkgerrors.ErrPunchTableMissing
	}

	joined, err := s.repo.Punch.JoinRoster(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("整合查询失败: %w", err)
	}

	rows, width := groupPunches(joined)

	if err := s.repo.Integrated.Replace(ctx, rows, width); err != nil {
		return 0, 0, fmt.Errorf("重建 integrated_punch 表失败: %w", err)
	}

	s.logger.Info("整合后的打卡资料已存储到 integrated_punch 表",
		zap.Int("rows", len(rows)),
		zap.Int("time_columns", width),
	)
	return len(rows), width, nil
}

// groupPunches 按 (帐号, 日期, 班别) 分组，保持组的首见顺序与组内刷卡行序。
//
// 组内部始终是变长时间序列，固定宽度只在存储边界物化；
// 返回的 width 为所有组的最大打卡次数，短组由存储层右侧补 NULL。
// 班表重复行会让同一笔刷卡在组内重复出现，与原 GROUP_CONCAT 语义一致，
// 由夜点清算的去重兜底。
func groupPunches(joined []model.JoinedPunch) ([]model.IntegratedPunch, int) {
	type groupKey struct {
		account string
		date    string
		class   string
	}

	groups := make(map[groupKey]*model.IntegratedPunch)
	var order []groupKey

	for _, jp := range joined {
		k := groupKey{jp.Account, jp.Date, jp.Class}
		g, ok := groups[k]
		if !ok {
			g = &model.IntegratedPunch{
				Account: jp.Account,
				CardID:  jp.CardID,
				Name:    jp.Name,
				Class:   jp.Class,
				Date:    jp.Date,
			}
			groups[k] = g
			order = append(order, k)
		}
		// 首个非空的卡号/姓名代表该组
		if g.CardID == "" {
			g.CardID = jp.CardID
		}
		if g.Name == "" {
			g.Name = jp.Name
		}
		if jp.Time != "" {
			g.Times = append(g.Times, jp.Time)
		}
	}

	width := 0
	rows := make([]model.IntegratedPunch, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g.Times) > width {
			width = len(g.Times)
		}
		rows = append(rows, *g)
	}
	return rows, width
}
