package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/repository"
	"github.com/AnimeggUnity/punchcard-data-tool/internal/service"
	"github.com/AnimeggUnity/punchcard-data-tool/pkg/database"
	applogger "github.com/AnimeggUnity/punchcard-data-tool/pkg/logger"
)

const programName = "punchcard"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "打卡资料整理与夜点清算工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "配置文件路径")
	rootCmd.AddCommand(
		importCommand(),
		nightMealCommand(),
		punchRecordCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}

// runtimeEnv 单次运行的作用域资源：配置、日志器、存储与服务聚合。
// 不使用任何进程级全局，句柄在运行结束时统一释放。
type runtimeEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	svc    *service.Service
}

// importCommand 读取刷卡资料与班表，清洗落库并整合
func importCommand() *cobra.Command {
	var dbPath, punchPath, rosterPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "汇入刷卡资料与班表并整合",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := setupWithOverrides(true, func(cfg *config.Config) {
				if cmd.Flags().Changed("db_path") {
					cfg.Database.Path = dbPath
				}
				if cmd.Flags().Changed("punch_path") {
					cfg.Data.PunchPath = punchPath
				}
				if cmd.Flags().Changed("roster_path") {
					cfg.Data.RosterPath = rosterPath
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			total, err := env.svc.Import.Run(ctx)
			if err != nil {
				env.logger.Error("汇入失败", zap.Error(err))
				return err
			}

			rows, width, err := env.svc.Integrate.Run(ctx)
			if err != nil {
				env.logger.Error("整合失败", zap.Error(err))
				return err
			}

			env.logger.Info("清理和整合后的资料已保存",
				zap.String("db", env.cfg.Database.Path),
				zap.Int("processed_rows", total),
				zap.Int("integrated_rows", rows),
				zap.Int("time_columns", width),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db_path", "", "数据库文件路径")
	cmd.Flags().StringVar(&punchPath, "punch_path", "", "刷卡资料 Excel 文件路径")
	cmd.Flags().StringVar(&rosterPath, "roster_path", "", "班别资料 Excel 文件路径")
	return cmd
}

// nightMealCommand 夜点清算与报表输出
func nightMealCommand() *cobra.Command {
	var dbPath, outputDir, listPath, format string

	cmd := &cobra.Command{
		Use:   "nightmeal",
		Short: "清算夜点资格并输出报表",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "csv", "html", "both":
			default:
				return fmt.Errorf("无效的输出格式 %q（可选: csv, html, both）", format)
			}

			env, cleanup, err := setupWithOverrides(false, func(cfg *config.Config) {
				if cmd.Flags().Changed("db_path") {
					cfg.Database.Path = dbPath
				}
				if cmd.Flags().Changed("output_dir") {
					cfg.Report.OutputDir = outputDir
				}
				if cmd.Flags().Changed("list_path") {
					cfg.Report.ListPath = listPath
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			records, err := env.svc.NightMeal.Evaluate(ctx)
			if err != nil {
				env.logger.Error("夜点清算失败", zap.Error(err))
				return err
			}
			summaries := env.svc.NightMeal.Summarize(records)

			if format == "csv" || format == "both" {
				if _, err := env.svc.Report.WriteNightMealCSV(ctx, summaries, env.cfg.Report.OutputDir); err != nil {
					env.logger.Error("输出夜点 CSV 失败", zap.Error(err))
					return err
				}
			}
			if format == "html" || format == "both" {
				if _, err := env.svc.Report.WriteNightMealHTML(ctx, summaries, env.cfg.Report.OutputDir); err != nil {
					env.logger.Error("输出夜点总表失败", zap.Error(err))
					return err
				}
			}

			env.logger.Info("夜点处理程式执行完毕",
				zap.Int("records", len(records)),
				zap.Int("summaries", len(summaries)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db_path", "", "数据库文件路径")
	cmd.Flags().StringVar(&outputDir, "output_dir", "", "输出资料夹路径")
	cmd.Flags().StringVar(&listPath, "list_path", "", "比对清单档案路径")
	cmd.Flags().StringVar(&format, "format", "both", "输出格式 (csv|html|both)")
	return cmd
}

// punchRecordCommand 打卡记录查询：预设查单日，--all 输出完整总表
func punchRecordCommand() *cobra.Command {
	var (
		dbPath, outputDir, date string
		all                     bool
	)

	cmd := &cobra.Command{
		Use:   "punchrecord",
		Short: "查询打卡记录并输出",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, cleanup, err := setupWithOverrides(false, func(cfg *config.Config) {
				if cmd.Flags().Changed("db_path") {
					cfg.Database.Path = dbPath
				}
				if cmd.Flags().Changed("output_dir") {
					cfg.Report.OutputDir = outputDir
				}
			})
			if err != nil {
				return err
			}
			defer cleanup()

			if all {
				htmlPath, err := env.svc.PunchQuery.ExportAll(cmd.Context(), env.cfg.Report.OutputDir)
				if err != nil {
					env.logger.Error("输出打卡记录总表失败", zap.Error(err))
					return err
				}
				env.logger.Info("打卡记录总表查询完成", zap.String("html", htmlPath))
				return nil
			}

			htmlPath, csvPath, err := env.svc.PunchQuery.Export(cmd.Context(), date, env.cfg.Report.OutputDir)
			if err != nil {
				env.logger.Error("查询打卡记录失败", zap.Error(err))
				return err
			}
			env.logger.Info("打卡记录查询完成",
				zap.String("html", htmlPath),
				zap.String("csv", csvPath),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db_path", "", "数据库文件路径")
	cmd.Flags().StringVar(&outputDir, "output_dir", "", "输出资料夹路径")
	cmd.Flags().StringVar(&date, "date", "", "查询日期 (格式: MM-DD, 预设为今天)")
	cmd.Flags().BoolVar(&all, "all", false, "输出全部日期范围的打卡记录总表 (以卡号分组)")
	return cmd
}

// setupWithOverrides 加载配置、套用命令行覆写后组装运行环境。
// fresh 为 true 时重建数据库档案（汇入流程的全量重建语义）。
func setupWithOverrides(fresh bool, override func(*config.Config)) (*runtimeEnv, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	override(cfg)

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewDB(&cfg.Database, fresh, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}

	repo := repository.NewRepository(db)
	env := &runtimeEnv{
		cfg:    cfg,
		logger: logger,
		db:     db,
		svc:    service.NewService(cfg, repo, logger),
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			logger.Error("关闭数据库失败", zap.Error(err))
		}
		logger.Sync()
	}
	return env, cleanup, nil
}
