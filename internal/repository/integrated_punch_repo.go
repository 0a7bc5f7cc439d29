package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/AnimeggUnity/punchcard-data-tool/internal/model"
)

// timeColumnPrefix 整合表时间栏位的命名前缀：刷卡時間1..刷卡時間N
const timeColumnPrefix = "刷卡時間"

// fixedColumns 整合表的固定栏位，时间栏位接在其后
var fixedColumns = []string{"公務帳號", "卡號", "姓名", "班別", "刷卡日期"}

// IntegratedPunchRepository integrated_punch 表数据访问接口。
// 时间栏位数随数据集变化（全局最大单日打卡次数），表结构每次重建。
type IntegratedPunchRepository interface {
	// Replace 以宽度 width 重建整合表并写入全部行，短行右侧补 NULL
	Replace(ctx context.Context, rows []model.IntegratedPunch, width int) error
	// TimeColumns 返回当前整合表中的时间栏位名，按栏位序
	TimeColumns(ctx context.Context) ([]string, error)
	// DistinctClasses 返回不重复的班别名称，未匹配班表的组以空字符串表示
	DistinctClasses(ctx context.Context) ([]string, error)
	// ListByClass 返回指定班别的整合行，
	// 按 (卡號, 班別, 公務帳號, 姓名, 刷卡日期) 升序
	ListByClass(ctx context.Context, class string) ([]model.IntegratedPunch, error)
	// ListByMonthDay 返回刷卡日期命中 MM-DD 的整合行，按 (班別, 卡號) 升序
	ListByMonthDay(ctx context.Context, monthDay string) ([]model.IntegratedPunch, error)
	// ListAll 返回全部整合行，按 (公務帳號, 刷卡日期) 升序
	ListAll(ctx context.Context) ([]model.IntegratedPunch, error)
}

type integratedPunchRepo struct {
	db *gorm.DB
}

// NewIntegratedPunchRepo 创建 IntegratedPunchRepository 实例
func NewIntegratedPunchRepo(db *gorm.DB) IntegratedPunchRepository {
	return &integratedPunchRepo{db: db}
}

func (r *integratedPunchRepo) Replace(ctx context.Context, rows []model.IntegratedPunch, width int) error {
	db := r.db.WithContext(ctx)

	if err := db.Exec(`DROP TABLE IF EXISTS integrated_punch`).Error; err != nil {
		return fmt.Errorf("清除旧 integrated_punch 表失败: %w", err)
	}

	cols := make([]string, 0, len(fixedColumns)+width)
	for _, c := range fixedColumns {
		cols = append(cols, quoteIdent(c)+" TEXT")
	}
	for i := 1; i <= width; i++ {
		cols = append(cols, quoteIdent(fmt.Sprintf("%s%d", timeColumnPrefix, i))+" TEXT")
	}
	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS integrated_punch (%s)",
		strings.Join(cols, ", "),
	)
	if err := db.Exec(createSQL).Error; err != nil {
		return fmt.Errorf("创建 integrated_punch 表失败: %w", err)
	}

	if len(rows) == 0 {
		return nil
	}

	colNames := make([]string, 0, len(fixedColumns)+width)
	for _, c := range fixedColumns {
		colNames = append(colNames, quoteIdent(c))
	}
	for i := 1; i <= width; i++ {
		colNames = append(colNames, quoteIdent(fmt.Sprintf("%s%d", timeColumnPrefix, i)))
	}
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(colNames)), ",") + ")"
	insertSQL := fmt.Sprintf(
		"INSERT INTO integrated_punch (%s) VALUES %s",
		strings.Join(colNames, ", "), placeholders,
	)

	return db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			args := make([]any, 0, len(colNames))
			args = append(args,
				row.Account,
				nullable(row.CardID),
				nullable(row.Name),
				nullable(row.Class),
				row.Date,
			)
			for i := 0; i < width; i++ {
				if i < len(row.Times) && row.Times[i] != "" {
					args = append(args, row.Times[i])
				} else {
					args = append(args, nil)
				}
			}
			if err := tx.Exec(insertSQL, args...).Error; err != nil {
				return fmt.Errorf("写入 integrated_punch 失败: %w", err)
			}
		}
		return nil
	})
}

func (r *integratedPunchRepo) TimeColumns(ctx context.Context) ([]string, error) {
	rows, err := r.db.WithContext(ctx).Raw(`PRAGMA table_info(integrated_punch)`).Rows()
	if err != nil {
		return nil, fmt.Errorf("查询 integrated_punch 表结构失败: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var (
			cid     int
			name    string
			colType sql.NullString
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("扫描表结构失败: %w", err)
		}
		if strings.HasPrefix(name, timeColumnPrefix) {
			result = append(result, name)
		}
	}
	return result, rows.Err()
}

func (r *integratedPunchRepo) DistinctClasses(ctx context.Context) ([]string, error) {
	rows, err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT 班別 FROM integrated_punch ORDER BY 班別 ASC`).Rows()
	if err != nil {
		return nil, fmt.Errorf("查询班别清单失败: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var class sql.NullString
		if err := rows.Scan(&class); err != nil {
			return nil, err
		}
		result = append(result, class.String)
	}
	return result, rows.Err()
}

func (r *integratedPunchRepo) ListByClass(ctx context.Context, class string) ([]model.IntegratedPunch, error) {
	where := "班別 = ?"
	args := []any{class}
	if class == "" {
		// 未匹配班表的组存为 NULL，此分支把这些帐号纳入清算（报表归入 未分班）。
		// 旧流程的字符串拼接会把 NULL 渲染成 'None' 导致永远查不到，属缺陷而非语义。
		where = "(班別 IS NULL OR 班別 = '')"
		args = nil
	}
	orderBy := `ORDER BY 卡號 ASC, 班別 ASC, 公務帳號 ASC, 姓名 ASC, 刷卡日期 ASC`
	return r.list(ctx, where, orderBy, args)
}

func (r *integratedPunchRepo) ListByMonthDay(ctx context.Context, monthDay string) ([]model.IntegratedPunch, error) {
	where := `strftime('%m-%d', 刷卡日期) = ?`
	orderBy := `ORDER BY 班別 ASC, 卡號 ASC`
	return r.list(ctx, where, orderBy, []any{monthDay})
}

func (r *integratedPunchRepo) ListAll(ctx context.Context) ([]model.IntegratedPunch, error) {
	return r.list(ctx, "1 = 1", `ORDER BY 公務帳號 ASC, 刷卡日期 ASC`, nil)
}

// list 组装 SELECT 并扫描动态宽度的时间栏位。
// 栏位名全部来自 fixedColumns 与程序生成的 刷卡時間N，过滤值一律走占位符。
func (r *integratedPunchRepo) list(ctx context.Context, where, orderBy string, args []any) ([]model.IntegratedPunch, error) {
	timeCols, err := r.TimeColumns(ctx)
	if err != nil {
		return nil, err
	}

	selectCols := make([]string, 0, len(fixedColumns)+len(timeCols))
	for _, c := range fixedColumns {
		selectCols = append(selectCols, quoteIdent(c))
	}
	for _, c := range timeCols {
		selectCols = append(selectCols, quoteIdent(c))
	}
	query := fmt.Sprintf(
		"SELECT %s FROM integrated_punch WHERE %s %s",
		strings.Join(selectCols, ", "), where, orderBy,
	)

	rows, err := r.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("查询 integrated_punch 失败: %w", err)
	}
	defer rows.Close()

	var result []model.IntegratedPunch
	for rows.Next() {
		fixed := make([]sql.NullString, len(fixedColumns))
		times := make([]sql.NullString, len(timeCols))
		dest := make([]any, 0, len(fixed)+len(times))
		for i := range fixed {
			dest = append(dest, &fixed[i])
		}
		for i := range times {
			dest = append(dest, &times[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("扫描 integrated_punch 行失败: %w", err)
		}

		ip := model.IntegratedPunch{
			Account: fixed[0].String,
			CardID:  fixed[1].String,
			Name:    fixed[2].String,
			Class:   fixed[3].String,
			Date:    fixed[4].String,
			Times:   make([]string, len(times)),
		}
		for i, t := range times {
			ip.Times[i] = t.String
		}
		result = append(result, ip)
	}
	return result, rows.Err()
}

// nullable 空字符串存为 NULL，与来源资料的缺失语义一致
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// quoteIdent SQLite 标识符引用
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
