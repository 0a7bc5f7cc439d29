package model

// Punch 原始刷卡事件 — 对应 punch 表。
//
// 栏位名沿用门禁系统汇出档的原始表头（繁体），避免在 ETL 两端各维护一套对照。
// 每次运行整表重建，无增量更新。
type Punch struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"        json:"id"`
	Sequence int64  `gorm:"column:序號;not null"           json:"sequence"`
	Account  string `gorm:"column:公務帳號;type:text"     json:"account"`
	Date     string `gorm:"column:刷卡日期;type:text"     json:"date"`
	Time     string `gorm:"column:刷卡時間;type:text"     json:"time"` // 空字符串表示无打卡时间
}

// TableName 指定表名
func (Punch) TableName() string { return "punch" }

// PunchUpdate 正规化批次更新的单行载荷
type PunchUpdate struct {
	ID   int64
	Date string
	Time string
}

// JoinedPunch punch 左连接 shift_class 后的一行，按 punch 原始行序排列。
// 未匹配到班表的刷卡记录，卡号/姓名/班别为空字符串。
type JoinedPunch struct {
	Account string
	CardID  string
	Name    string
	Class   string
	Date    string
	Time    string
}
