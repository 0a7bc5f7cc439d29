package service

import (
	"go.uber.org/zap"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Import     ImportService
	Integrate  IntegrateService
	NightMeal  NightMealService
	Report     ReportService
	PunchQuery PunchQueryService
}

// NewService 创建 Service 聚合
func NewService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) *Service {
	return &Service{
		Import:     NewImportService(cfg, repo, logger),
		Integrate:  NewIntegrateService(repo, logger),
		NightMeal:  NewNightMealService(cfg, repo, logger),
		Report:     NewReportService(logger),
		PunchQuery: NewPunchQueryService(repo, logger),
	}
}
