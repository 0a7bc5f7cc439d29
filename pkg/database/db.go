package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/AnimeggUnity/punchcard-data-tool/config"
)

// NewDB 打开 SQLite 数据库连接。
//
// 数据库目录不存在时自动创建。fresh 为 true 时先删除既有数据库档案，
// 对应整理流程「每次运行全量重建」的语义；报表流程以 fresh=false 打开既有库。
func NewDB(cfg *config.DatabaseConfig, fresh bool, logger *zap.Logger) (*gorm.DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	if fresh {
		if _, err := os.Stat(cfg.Path); err == nil {
			if err := os.Remove(cfg.Path); err != nil {
				return nil, fmt.Errorf("删除既有数据库档案失败: %w", err)
			}
			logger.Info("已删除既有数据库档案", zap.String("path", cfg.Path))
		}
	}

	// busy_timeout 防止读写交错时立即报 SQLITE_BUSY；单进程批处理下仅为保险
	dsn := cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	logger.Info("数据库连接成功", zap.String("path", cfg.Path))
	return db, nil
}

// Close 关闭底层 sql.DB 连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}
