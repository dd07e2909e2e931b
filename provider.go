package ikkatsu

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strconv"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
)

// Provider 是方言插件的边界
// 一个 Provider 无状态，注册进 DB 之后只读，必须允许并发使用
type Provider interface {
	// Name 方言的名字，出现在诊断日志里
	Name() string

	// CanHandle 连接识别谓词，true 表示这个 provider 认识该驱动
	CanHandle(drv driver.Driver) bool

	// 三个能力开关
	// 选中的 provider 对应动词的开关是 false 时，引擎按没有 provider 处理
	CanInsert() bool
	CanUpdate() bool
	CanDelete() bool

	// DefaultBatchSize 调用方不指定批大小时的方言默认值
	DefaultBatchSize() int

	// GetQueryInformation 把谓词翻译成带命名占位符的 WHERE 片段
	GetQueryInformation(m *model.Model, ps []Predicate) (*QueryInfo, error)

	// GetDeleteQuery 生成完整的 DELETE 语句
	GetDeleteQuery(m *model.Model, where *QueryInfo) (*Query, error)

	// GetUpdateQuery 生成完整的 UPDATE 语句
	// sets 和 where 的参数名由引擎保证两两不同
	GetUpdateQuery(m *model.Model, sets []SetClause, where *QueryInfo) (*Query, error)

	// GetTruncateQuery 生成清空整张表的语句
	GetTruncateQuery(m *model.Model) (*Query, error)

	// InsertItems 分批消费 src 并执行批量插入，返回受影响的行数
	// batchSize <= 0 时使用 DefaultBatchSize
	InsertItems(ctx context.Context, sess Session, m *model.Model,
		fields []*model.Field, src RowSource, batchSize int, upsert *Upsert) (int64, error)
}

// RowSource 是 InsertItems 的输入，一行是按列序排好的值
// 由引擎在 Iterator 之上适配出来，逐行惰性读取
type RowSource interface {
	Next() bool
	Row() ([]any, error)
	Err() error
	Close() error
}

// SetClause 一个 SET 赋值：目标列，加上产生新值的 SQL 片段
type SetClause struct {
	Field *model.Field
	Info  *QueryInfo
}

func defaultProviders() []Provider {
	return []Provider{
		NewMySQLProvider(),
		NewSQLiteProvider(),
		NewPostgresProvider(),
	}
}

func questionMarker(int) string {
	return "?"
}

func dollarMarker(n int) string {
	return "$" + strconv.Itoa(n)
}

// standardSQL 承载内置 provider 共用的 SQL 生成逻辑
// 方言差异全部收敛成字段，由各自的构造函数填好
type standardSQL struct {
	name        string
	quoter      byte
	marker      func(n int) string // 第 n 个占位符（从 1 开始）的方言写法
	batchSize   int
	maxBindVars int  // 单条语句的绑定变量上限，0 表示没有限制
	useTruncate bool // false 的方言用不带 WHERE 的 DELETE 代替 TRUNCATE
	upsert      func(t *translator, u *Upsert) error
}

func (s *standardSQL) Name() string {
	return s.name
}

func (s *standardSQL) CanInsert() bool { return true }
func (s *standardSQL) CanUpdate() bool { return true }
func (s *standardSQL) CanDelete() bool { return true }

func (s *standardSQL) DefaultBatchSize() int {
	return s.batchSize
}

func (s *standardSQL) GetQueryInformation(m *model.Model, ps []Predicate) (*QueryInfo, error) {
	if len(ps) == 0 {
		return nil, errs.ErrEmptyPredicate
	}
	t := newTranslator(m, s.quoter)
	if err := t.buildPredicates(ps); err != nil {
		return nil, err
	}
	return t.info(), nil
}

func (s *standardSQL) GetDeleteQuery(m *model.Model, where *QueryInfo) (*Query, error) {
	t := newTranslator(m, s.quoter)
	t.sb.WriteString("DELETE FROM ")
	t.writeTable()

	params := make([]Param, 0, 4)
	if where != nil {
		t.sb.WriteString(" WHERE ")
		t.sb.WriteString(where.SQL)
		params = append(params, where.Params...)
	}
	t.sb.WriteByte(';')

	return s.expandNamed(t.sb.String(), params)
}

func (s *standardSQL) GetUpdateQuery(m *model.Model, sets []SetClause, where *QueryInfo) (*Query, error) {
	if len(sets) == 0 {
		return nil, errs.ErrNoUpdatedColumns
	}

	t := newTranslator(m, s.quoter)
	t.sb.WriteString("UPDATE ")
	t.writeTable()
	t.sb.WriteString(" SET ")

	params := make([]Param, 0, 8)
	for i, sc := range sets {
		if i > 0 {
			t.sb.WriteByte(',')
		}
		t.quote(sc.Field.ColName)
		t.sb.WriteByte('=')
		t.sb.WriteString(sc.Info.SQL)
		params = append(params, sc.Info.Params...)
	}

	if where != nil {
		t.sb.WriteString(" WHERE ")
		t.sb.WriteString(where.SQL)
		params = append(params, where.Params...)
	}
	t.sb.WriteByte(';')

	return s.expandNamed(t.sb.String(), params)
}

func (s *standardSQL) GetTruncateQuery(m *model.Model) (*Query, error) {
	t := newTranslator(m, s.quoter)
	if s.useTruncate {
		t.sb.WriteString("TRUNCATE TABLE ")
	} else {
		t.sb.WriteString("DELETE FROM ")
	}
	t.writeTable()
	t.sb.WriteByte(';')
	return &Query{SQL: t.sb.String()}, nil
}

func (s *standardSQL) InsertItems(ctx context.Context, sess Session, m *model.Model,
	fields []*model.Field, src RowSource, batchSize int, upsert *Upsert) (int64, error) {
	defer func() {
		_ = src.Close()
	}()

	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	// 方言对单条语句的绑定变量数量有硬上限时压缩批大小
	if s.maxBindVars > 0 && len(fields) > 0 {
		if limit := s.maxBindVars / len(fields); limit > 0 && batchSize > limit {
			batchSize = limit
		}
	}

	var total int64
	seen := false
	batch := make([][]any, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		q, err := s.buildInsert(m, fields, batch, upsert)
		if err != nil {
			return err
		}
		res, err := sess.ExecContext(ctx, q.SQL, q.Args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	for src.Next() {
		seen = true
		row, err := src.Row()
		if err != nil {
			return total, err
		}
		batch = append(batch, row)
		// 一批最多 batchSize 行，最后一批可以更小
		if len(batch) >= batchSize {
			if err = flush(); err != nil {
				return total, err
			}
		}
	}
	if err := src.Err(); err != nil {
		return total, err
	}
	if !seen {
		return 0, errs.ErrInsertZeroRow
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// buildInsert 生成一批数据的多行 VALUES 插入语句
func (s *standardSQL) buildInsert(m *model.Model, fields []*model.Field,
	batch [][]any, upsert *Upsert) (*Query, error) {
	t := newTranslator(m, s.quoter)
	t.sb.WriteString("INSERT INTO ")
	t.writeTable()
	t.sb.WriteString(" (")
	for i, fd := range fields {
		if i > 0 {
			t.sb.WriteByte(',')
		}
		t.quote(fd.ColName)
	}
	t.sb.WriteString(") VALUES ")

	for ri, row := range batch {
		if ri > 0 {
			t.sb.WriteByte(',')
		}
		t.sb.WriteByte('(')
		for ci, v := range row {
			if ci > 0 {
				t.sb.WriteByte(',')
			}
			t.addParam(v)
		}
		t.sb.WriteByte(')')
	}

	if upsert != nil {
		if err := s.upsert(t, upsert); err != nil {
			return nil, err
		}
	}

	t.sb.WriteByte(';')
	return s.expandNamed(t.sb.String(), t.params)
}

// 占位符统一是 @ 加标识符
var paramPattern = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)`)

// expandNamed 把 @name 占位符展开成方言自己的占位符
// 参数值按占位符在文本里出现的顺序排列
func (s *standardSQL) expandNamed(sqlText string, params []Param) (*Query, error) {
	if len(params) == 0 {
		return &Query{SQL: sqlText}, nil
	}

	vals := make(map[string]any, len(params))
	for _, p := range params {
		vals[p.Name] = p.Value
	}

	var missing string
	args := make([]any, 0, len(params))
	res := paramPattern.ReplaceAllStringFunc(sqlText, func(match string) string {
		name := match[1:]
		v, ok := vals[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		args = append(args, v)
		return s.marker(len(args))
	})
	if missing != "" {
		return nil, errs.NewErrUnknownParam(missing)
	}
	return &Query{SQL: res, Args: args}, nil
}

// buildMySQLUpsert 渲染 ON DUPLICATE KEY UPDATE 子句
func buildMySQLUpsert(t *translator, u *Upsert) error {
	t.sb.WriteString(" ON DUPLICATE KEY UPDATE ")
	for idx, a := range u.assigns {
		if idx > 0 {
			t.sb.WriteByte(',')
		}

		switch assign := a.(type) {
		case Column:
			// 使用原本插入的值
			fd, ok := t.model.FieldMap[assign.name]
			if !ok {
				return errs.NewErrUnknownField(assign.name)
			}
			t.quote(fd.ColName)
			t.sb.WriteString("=VALUES(")
			t.quote(fd.ColName)
			t.sb.WriteByte(')')
		case Assignment:
			if err := t.buildColumn(Column{name: assign.column}); err != nil {
				return err
			}
			t.sb.WriteByte('=')
			if err := t.buildExpression(assign.val); err != nil {
				return err
			}
		default:
			return errs.NewErrUnsupportedAssignableType(a)
		}
	}
	return nil
}

// buildConflictUpsert 渲染 ON CONFLICT ... DO UPDATE SET 子句
// SQLite 和 Postgres 共用这种形式
func buildConflictUpsert(t *translator, u *Upsert) error {
	t.sb.WriteString(" ON CONFLICT")
	if len(u.conflictColumns) > 0 {
		t.sb.WriteByte('(')
		for i, col := range u.conflictColumns {
			if i > 0 {
				t.sb.WriteByte(',')
			}
			if err := t.buildColumn(Column{name: col}); err != nil {
				return err
			}
		}
		t.sb.WriteByte(')')
	}
	t.sb.WriteString(" DO UPDATE SET ")

	for idx, a := range u.assigns {
		if idx > 0 {
			t.sb.WriteByte(',')
		}

		switch assign := a.(type) {
		case Column:
			fd, ok := t.model.FieldMap[assign.name]
			if !ok {
				return errs.NewErrUnknownField(assign.name)
			}
			t.quote(fd.ColName)
			t.sb.WriteString("=excluded.")
			t.quote(fd.ColName)
		case Assignment:
			if err := t.buildColumn(Column{name: assign.column}); err != nil {
				return err
			}
			t.sb.WriteByte('=')
			if err := t.buildExpression(assign.val); err != nil {
				return err
			}
		default:
			return errs.NewErrUnsupportedAssignableType(a)
		}
	}
	return nil
}
