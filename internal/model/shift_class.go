package model

// ShiftClass 班表条目 — 对应 shift_class 表。
//
// 多个班表档案/Sheet 追加写入，不去重：同一帐号可能出现多行，
// 下游整合查询以 GROUP BY 语义容忍重复（参见 integrate_service）。
type ShiftClass struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"    json:"id"`
	Account string `gorm:"column:公務帳號;type:text" json:"account"`
	CardID  string `gorm:"column:卡號;type:text"     json:"card_id"`
	Name    string `gorm:"column:姓名;type:text"     json:"name"`
	Class   string `gorm:"column:班別;type:text"     json:"class"`
}

// TableName 指定表名
func (ShiftClass) TableName() string { return "shift_class" }
