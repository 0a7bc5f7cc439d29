package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

// PunchRepository punch 表数据访问接口
type PunchRepository interface {
	// Replace 整表重建后写入本批资料。每个 Sheet 调用一次，后写覆盖先写。
	Replace(ctx context.Context, rows []model.Punch) error
	// Exists punch 表是否存在
	Exists(ctx context.Context) (bool, error)
	// List 按插入顺序返回全部刷卡记录
	List(ctx context.Context) ([]model.Punch, error)
	// UpdateDateTimes 批次回写正规化后的日期/时间，单事务提交
	UpdateDateTimes(ctx context.Context, updates []model.PunchUpdate) error
	// JoinRoster punch 左连接 shift_class，按 punch 行序返回。
	// 班表中同帐号的重复行会使刷卡行成倍出现，由整合层的分组语义吸收。
	JoinRoster(ctx context.Context) ([]model.JoinedPunch, error)
}

type punchRepo struct {
	db *gorm.DB
}

// NewPunchRepo 创建 PunchRepository 实例
func NewPunchRepo(db *gorm.DB) PunchRepository {
	return &punchRepo{db: db}
}

func (r *punchRepo) Replace(ctx context.Context, rows []model.Punch) error {
	db := r.db.WithContext(ctx)
	if err := db.Migrator().DropTable(&model.Punch{}); err != nil {
		return fmt.Errorf("重建 punch 表失败: %w", err)
	}
	if err := db.Migrator().CreateTable(&model.Punch{}); err != nil {
		return fmt.Errorf("创建 punch 表失败: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(rows, 200).Error
}

func (r *punchRepo) Exists(ctx context.Context) (bool, error) {
	return r.db.WithContext(ctx).Migrator().HasTable(&model.Punch{}), nil
}

func (r *punchRepo) List(ctx context.Context) ([]model.Punch, error) {
	var rows []model.Punch
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *punchRepo) UpdateDateTimes(ctx context.Context, updates []model.PunchUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&model.Punch{}).
				Where("id = ?", u.ID).
				Updates(map[string]any{"刷卡日期": u.Date, "刷卡時間": u.Time}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *punchRepo) JoinRoster(ctx context.Context) ([]model.JoinedPunch, error) {
	const query = `
		SELECT
			punch.公務帳號,
			COALESCE(shift_class.卡號, '')   AS 卡號,
			COALESCE(shift_class.姓名, '')   AS 姓名,
			COALESCE(shift_class.班別, '')   AS 班別,
			punch.刷卡日期,
			punch.刷卡時間
		FROM punch
		LEFT JOIN shift_class ON punch.公務帳號 = shift_class.公務帳號
		ORDER BY punch.id ASC, shift_class.id ASC`

	rows, err := r.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, fmt.Errorf("连接 punch 与 shift_class 失败: %w", err)
	}
	defer rows.Close()

	var result []model.JoinedPunch
	for rows.Next() {
		var jp model.JoinedPunch
		if err := rows.Scan(&jp.Account, &jp.CardID, &jp.Name, &jp.Class, &jp.Date, &jp.Time); err != nil {
			return nil, fmt.Errorf("扫描连接结果失败: %w", err)
		}
		result = append(result, jp)
	}
	return result, rows.Err()
}
