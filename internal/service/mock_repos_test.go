package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

// ── Mock PunchRepository ──

type mockPunchRepo struct {
	rows         []model.Punch
	roster       *mockShiftClassRepo
	replaceCalls int
}

func newMockPunchRepo(roster *mockShiftClassRepo) *mockPunchRepo {
	return &mockPunchRepo{roster: roster}
}

func (m *mockPunchRepo) Replace(_ context.Context, rows []model.Punch) error {
	m.replaceCalls++
	m.rows = make([]model.Punch, len(rows))
	copy(m.rows, rows)
	for i := range m.rows {
		m.rows[i].ID = int64(i + 1)
	}
	return nil
}

func (m *mockPunchRepo) Exists(_ context.Context) (bool, error) {
	return m.replaceCalls > 0 || len(m.rows) > 0, nil
}

func (m *mockPunchRepo) List(_ context.Context) ([]model.Punch, error) {
	out := make([]model.Punch, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *mockPunchRepo) UpdateDateTimes(_ context.Context, updates []model.PunchUpdate) error {
	byID := make(map[int64]model.PunchUpdate, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}
	for i := range m.rows {
		if u, ok := byID[m.rows[i].ID]; ok {
			m.rows[i].Date = u.Date
			m.rows[i].Time = u.Time
		}
	}
	return nil
}

// JoinRoster 模拟左连接：每笔刷卡按帐号匹配全部班表行，无匹配时补空栏位
func (m *mockPunchRepo) JoinRoster(_ context.Context) ([]model.JoinedPunch, error) {
	var result []model.JoinedPunch
	for _, p := range m.rows {
		var matches []model.ShiftClass
		if m.roster != nil {
			for _, sc := range m.roster.entries {
				if sc.Account == p.Account {
					matches = append(matches, sc)
				}
			}
		}
		if len(matches) == 0 {
			result = append(result, model.JoinedPunch{
				Account: p.Account,
				Date:    p.Date,
				Time:    p.Time,
			})
			continue
		}
		for _, sc := range matches {
			result = append(result, model.JoinedPunch{
				Account: p.Account,
				CardID:  sc.CardID,
				Name:    sc.Name,
				Class:   sc.Class,
				Date:    p.Date,
				Time:    p.Time,
			})
		}
	}
	return result, nil
}

// ── Mock ShiftClassRepository ──

type mockShiftClassRepo struct {
	entries []model.ShiftClass
}

func newMockShiftClassRepo() *mockShiftClassRepo {
	return &mockShiftClassRepo{}
}

func (m *mockShiftClassRepo) Append(_ context.Context, rows []model.ShiftClass) error {
	m.entries = append(m.entries, rows...)
	return nil
}

func (m *mockShiftClassRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.entries)), nil
}

// ── Mock IntegratedPunchRepository ──

type mockIntegratedRepo struct {
	rows  []model.IntegratedPunch
	width int
}

func newMockIntegratedRepo() *mockIntegratedRepo {
	return &mockIntegratedRepo{}
}

// seed 直接填充整合行（模拟已完成整合的存储状态），
// 与 Replace 一致地把短行补齐到宽度
func (m *mockIntegratedRepo) seed(rows []model.IntegratedPunch, width int) {
	_ = m.Replace(context.Background(), rows, width)
}

func (m *mockIntegratedRepo) Replace(_ context.Context, rows []model.IntegratedPunch, width int) error {
	m.width = width
	m.rows = make([]model.IntegratedPunch, len(rows))
	for i, r := range rows {
		padded := make([]string, width)
		copy(padded, r.Times)
		r.Times = padded
		m.rows[i] = r
	}
	return nil
}

func (m *mockIntegratedRepo) TimeColumns(_ context.Context) ([]string, error) {
	cols := make([]string, m.width)
	for i := range cols {
		cols[i] = fmt.Sprintf("刷卡時間%d", i+1)
	}
	return cols, nil
}

func (m *mockIntegratedRepo) DistinctClasses(_ context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var classes []string
	for _, r := range m.rows {
		if _, ok := seen[r.Class]; !ok {
			seen[r.Class] = struct{}{}
			classes = append(classes, r.Class)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (m *mockIntegratedRepo) ListByClass(_ context.Context, class string) ([]model.IntegratedPunch, error) {
	var out []model.IntegratedPunch
	for _, r := range m.rows {
		if r.Class == class {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CardID != b.CardID {
			return a.CardID < b.CardID
		}
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Date < b.Date
	})
	return out, nil
}

func (m *mockIntegratedRepo) ListAll(_ context.Context) ([]model.IntegratedPunch, error) {
	out := make([]model.IntegratedPunch, len(m.rows))
	copy(out, m.rows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Date < out[j].Date
	})
	return out, nil
}

func (m *mockIntegratedRepo) ListByMonthDay(_ context.Context, monthDay string) ([]model.IntegratedPunch, error) {
	var out []model.IntegratedPunch
	for _, r := range m.rows {
		if strings.HasSuffix(r.Date, monthDay) && len(r.Date) == 10 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].CardID < out[j].CardID
	})
	return out, nil
}
