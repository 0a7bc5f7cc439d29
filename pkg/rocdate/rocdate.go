// Package rocdate 提供民国历日期与刷卡时间字符串的正规化。
//
// 来源数据为门禁系统导出的原始字符串：
//   - 刷卡日期：民国年紧凑格式 "1130105"（7 位）或带连字符 "113-01-05"
//   - 刷卡时间：4 位 "HHMM" 或 6 位 "HHMMSS" 数字串
//
// 两个函数均为尽力转换：无法识别的形状原样返回，不报错。
package rocdate

import (
	"fmt"
	"strconv"
	"strings"
)

// rocYearOffset 民国年与西元年的固定偏移
const rocYearOffset = 1911

// NormalizeDate 将民国年日期字符串转为西元 ISO 格式 YYYY-MM-DD。
//
// 支持两种输入形状：
//   - 紧凑 7 位："1130105" → "2024-01-05"
//   - 带连字符且年份 1~3 位："113-1-5" / "113-01-05" → "2024-01-05"
//
// 其余形状（含已是西元的 "2024-01-05"）原样返回。
func NormalizeDate(raw string) string {
	if strings.Contains(raw, "-") {
		parts := strings.Split(raw, "-")
		if len(parts) != 3 {
			return raw
		}
		year, err := strconv.Atoi(parts[0])
		if err != nil || len(parts[0]) > 3 {
			return raw
		}
		month, err := strconv.Atoi(parts[1])
		if err != nil {
			return raw
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil {
			return raw
		}
		return fmt.Sprintf("%04d-%02d-%02d", year+rocYearOffset, month, day)
	}

	if len(raw) != 7 || !isDigits(raw) {
		return raw
	}
	year, _ := strconv.Atoi(raw[:3])
	return fmt.Sprintf("%04d-%s-%s", year+rocYearOffset, raw[3:5], raw[5:7])
}

// NormalizeTime 将刷卡时间字符串转为 HH:MM:SS。
//
//	""       → ""（空值保持空值）
//	"0800"   → "08:00:00"
//	"223015" → "22:30:15"
//	"08:00"  含冒号视为已正规化，原样返回
//
// 幂等：对已正规化的输入再次调用结果不变。
func NormalizeTime(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, ":") {
		return raw
	}
	switch {
	case len(raw) == 4 && isDigits(raw):
		return raw[:2] + ":" + raw[2:4] + ":00"
	case len(raw) == 6 && isDigits(raw):
		return raw[:2] + ":" + raw[2:4] + ":" + raw[4:6]
	}
	return raw
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
