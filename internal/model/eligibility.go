package model

// EligibilityRecord 一笔夜点资格记录：某员工某日最后一次刷卡晚于门槛。
// 每个 (帐号, 日期) 至多一笔，首见者保留。派生数据，产出后不再修改。
type EligibilityRecord struct {
	CardID  string
	Account string
	Name    string
	Class   string
	Date    string // ISO 日期 YYYY-MM-DD
	Month   string // "01".."12"，取自日期固定偏移切片
	Day     string // "01".."31"
	OnList  bool   // 是否命中比对清单（仅供报表高亮）
}

// MonthlySummary 夜点月度汇总：报表（月历格/CSV）的渲染单位。
type MonthlySummary struct {
	CardID  string
	Account string
	Name    string
	Class   string
	Month   string
	Days    []string // 有夜点记录的日号，升序
	OnList  bool
}

// DayCount 当月有记录的总天数
func (s *MonthlySummary) DayCount() int { return len(s.Days) }
