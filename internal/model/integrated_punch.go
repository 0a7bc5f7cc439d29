package model

// IntegratedPunch 整合后的打卡事实记录：一个 (帐号, 日期, 班别) 组的
// 身份信息加上该日全部刷卡时间的有序列表。
//
// 内部表示始终是变长的 Times 切片；固定宽度的 刷卡時間1..N 栏位
// 仅在存储边界物化（repository 写入时按全局最大打卡次数补 NULL）。
type IntegratedPunch struct {
	Account string
	CardID  string
	Name    string
	Class   string
	Date    string

	// Times 当日刷卡时间，保持原始行序，不按值排序。
	// 从存储读回时长度等于表的时间栏位数，空字符串表示 NULL 补位。
	Times []string
}

// LastPunch 返回当日最后一次打卡时间（从后往前第一个非空栏位）。
// 整行皆空时返回空字符串。
func (p *IntegratedPunch) LastPunch() string {
	for i := len(p.Times) - 1; i >= 0; i-- {
		if p.Times[i] != "" {
			return p.Times[i]
		}
	}
	return ""
}
