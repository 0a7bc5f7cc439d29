package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口。
// 关系存储是 punch / shift_class / integrated_punch 三张表的唯一持有者。
type Repository struct {
	Punch      PunchRepository
	ShiftClass ShiftClassRepository
	Integrated IntegratedPunchRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Punch:      NewPunchRepo(db),
		ShiftClass: NewShiftClassRepo(db),
		Integrated: NewIntegratedPunchRepo(db),
	}
}
