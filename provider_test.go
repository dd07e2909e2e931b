package ikkatsu

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver 只用于触发 provider 的选择逻辑
type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("not implemented")
}

// stubProvider 复用 standardSQL 的 SQL 生成，能力开关全部可配置
type stubProvider struct {
	standardSQL
	handles bool
	insert  bool
	update  bool
	delete  bool
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		standardSQL: standardSQL{
			name:      "stub",
			quoter:    '`',
			marker:    questionMarker,
			batchSize: 10,
			upsert:    buildMySQLUpsert,
		},
		handles: true,
		insert:  true,
		update:  true,
		delete:  true,
	}
}

func (p *stubProvider) CanHandle(drv driver.Driver) bool { return p.handles }
func (p *stubProvider) CanInsert() bool                  { return p.insert }
func (p *stubProvider) CanUpdate() bool                  { return p.update }
func (p *stubProvider) CanDelete() bool                  { return p.delete }

type execLog struct {
	query string
	args  []any
}

// testSession 把落到会话上的语句记录下来，不真正执行
type testSession struct {
	core  core
	drv   driver.Driver
	execs []execLog

	execErr error
	// rowsAffected 按参数算受影响的行数，不设置就每次返回 1
	rowsAffected func(args []any) int64
}

func (s *testSession) getCore() core {
	return s.core
}

func (s *testSession) driver() driver.Driver {
	return s.drv
}

func (s *testSession) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *testSession) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.execs = append(s.execs, execLog{query: query, args: args})
	if s.execErr != nil {
		return nil, s.execErr
	}
	rows := int64(1)
	if s.rowsAffected != nil {
		rows = s.rowsAffected(args)
	}
	return testResult{rows: rows}, nil
}

type testResult struct {
	rows int64
}

func (r testResult) LastInsertId() (int64, error) { return 0, nil }
func (r testResult) RowsAffected() (int64, error) { return r.rows, nil }

func TestSelectProvider(t *testing.T) {
	a := newStubProvider()
	b := newStubProvider()

	testCases := []struct {
		name      string
		providers []Provider
		want      Provider
	}{
		{
			// 两个都匹配时先注册的胜出
			name:      "first match wins",
			providers: []Provider{a, b},
			want:      a,
		},
		{
			name: "skip non matching",
			providers: []Provider{
				func() Provider { p := newStubProvider(); p.handles = false; return p }(),
				b,
			},
			want: b,
		},
		{
			name:      "no match",
			providers: []Provider{},
			want:      nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := core{providers: tc.providers}
			got := c.selectProvider(fakeDriver{})
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Same(t, tc.want, got)
		})
	}
}

func TestExpandNamed(t *testing.T) {
	mysql := &standardSQL{marker: questionMarker}
	pg := &standardSQL{marker: dollarMarker}

	testCases := []struct {
		name      string
		s         *standardSQL
		sql       string
		params    []Param
		wantQuery *Query
		wantErr   error
	}{
		{
			name:   "question markers",
			s:      mysql,
			sql:    "UPDATE `t` SET `a`=@p0_1 WHERE `a` > @p0;",
			params: []Param{{Name: "p0", Value: 30}, {Name: "p0_1", Value: 1}},
			wantQuery: &Query{
				SQL:  "UPDATE `t` SET `a`=? WHERE `a` > ?;",
				Args: []any{1, 30},
			},
		},
		{
			// 参数值按占位符在文本里出现的顺序排列，和 Params 的顺序无关
			name:   "args follow textual order",
			s:      mysql,
			sql:    "`a` = @p1 OR `b` = @p0",
			params: []Param{{Name: "p0", Value: "x"}, {Name: "p1", Value: "y"}},
			wantQuery: &Query{
				SQL:  "`a` = ? OR `b` = ?",
				Args: []any{"y", "x"},
			},
		},
		{
			name:   "dollar markers are numbered",
			s:      pg,
			sql:    `"a" = @p0 AND "b" = @p1 AND "c" = @p2`,
			params: []Param{{Name: "p0", Value: 1}, {Name: "p1", Value: 2}, {Name: "p2", Value: 3}},
			wantQuery: &Query{
				SQL:  `"a" = $1 AND "b" = $2 AND "c" = $3`,
				Args: []any{1, 2, 3},
			},
		},
		{
			name:      "no params",
			s:         mysql,
			sql:       "DELETE FROM `t`;",
			wantQuery: &Query{SQL: "DELETE FROM `t`;"},
		},
		{
			name:    "unknown placeholder",
			s:       mysql,
			sql:     "`a` = @p0 AND `b` = @nope",
			params:  []Param{{Name: "p0", Value: 1}},
			wantErr: errs.NewErrUnknownParam("nope"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := tc.s.expandNamed(tc.sql, tc.params)
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				return
			}
			assert.Equal(t, tc.wantQuery, q)
		})
	}
}

// 能力开关是 false 的时候按没有 provider 处理，
// 兜底被禁用的话直接报错
func TestCapabilityGate(t *testing.T) {
	p := newStubProvider()
	p.update = false

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()

	db, err := OpenDB(mockDB,
		DBWithProviders(p),
		DBWithoutFallback())
	require.NoError(t, err)

	_, err = For[TestModel](db).
		Where(C("Age").GT(30)).
		Update(context.Background(), Assign("FirstName", "Tom"))
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	// 同一个 provider 的 DELETE 开关还开着，不受影响
	p2 := newStubProvider()
	p2.update = false
	db2, err := OpenDB(mockDB, DBWithProviders(p2), DBWithoutFallback())
	require.NoError(t, err)
	_, err = For[TestModel](db2).Where(C("Id").EQ(1)).Delete(context.Background())
	assert.NotErrorIs(t, err, ErrUnsupportedOperation)
}

// 相同 driver+动词 的降级提示在窗口期内只输出一次
func TestDiagnosticDedup(t *testing.T) {
	var logs []string
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = mockDB.Close() }()

	db, err := OpenDB(mockDB, DBWithLogFunc(func(msg string) {
		logs = append(logs, msg)
	}))
	require.NoError(t, err)

	drv := fakeDriver{}
	db.logProviderMiss(OpTypeUpdate, drv, nil)
	db.logProviderMiss(OpTypeUpdate, drv, nil)
	assert.Len(t, logs, 1)
	assert.Contains(t, logs[0], "no provider can handle")

	// 另一个动词是另一个 key，照常输出
	db.logProviderMiss(OpTypeDelete, drv, nil)
	assert.Len(t, logs, 2)

	// 能力不足的提示带 provider 名字
	p := newStubProvider()
	db.logProviderMiss(OpTypeInsert, drv, p)
	assert.Len(t, logs, 3)
	assert.Contains(t, logs[2], "stub")
}

func TestProviderModelResolution(t *testing.T) {
	c := core{r: model.NewRegistry()}

	m, err := c.resolveModel(&TestModel{})
	require.NoError(t, err)
	assert.Equal(t, "test_model", m.TableName)

	_, err = c.resolveModel(TestModel{})
	assert.ErrorIs(t, err, ErrMappingNotFound)
}
