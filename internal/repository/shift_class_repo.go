package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

// ShiftClassRepository shift_class 表数据访问接口。
// 与 punch 的整表重建不同，班表只追加不清空：重复运行时班表资料持续累积，
// 这个不对称是既有流程依赖的行为，刻意保留。
type ShiftClassRepository interface {
	// Append 追加一批班表条目，不去重
	Append(ctx context.Context, rows []model.ShiftClass) error
	// Count 当前班表条目总数
	Count(ctx context.Context) (int64, error)
}

type shiftClassRepo struct {
	db *gorm.DB
}

// NewShiftClassRepo 创建 ShiftClassRepository 实例
func NewShiftClassRepo(db *gorm.DB) ShiftClassRepository {
	return &shiftClassRepo{db: db}
}

func (r *shiftClassRepo) Append(ctx context.Context, rows []model.ShiftClass) error {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&model.ShiftClass{}) {
		if err := db.Migrator().CreateTable(&model.ShiftClass{}); err != nil {
			return fmt.Errorf("创建 shift_class 表失败: %w", err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, 200).Error
}

func (r *shiftClassRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ShiftClass{}).Count(&n).Error
	return n, err
}
