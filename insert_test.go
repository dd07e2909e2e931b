package ikkatsu

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/internal/valuer"
	"github.com/coderi421/ikkatsu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldsOf 按属性名取映射字段，nil 表示全部
func fieldsOf(t *testing.T, m *model.Model, names []string) []*model.Field {
	t.Helper()
	if names == nil {
		return m.Fields
	}
	res := make([]*model.Field, 0, len(names))
	for _, n := range names {
		fd, ok := m.FieldMap[n]
		require.True(t, ok)
		res = append(res, fd)
	}
	return res
}

func newRowSource(m *model.Model, fields []*model.Field, vals []*TestModel) RowSource {
	return &iterSource[TestModel]{
		iter:    FromSlice(vals),
		fields:  fields,
		meta:    m,
		creator: valuer.NewUnsafeValue,
	}
}

func TestInsertItemsSQL(t *testing.T) {
	r := model.NewRegistry()
	m, err := r.Get(&TestModel{})
	require.NoError(t, err)

	row := &TestModel{Id: 12, FirstName: "Tom", Age: 18}
	rowArgs := []any{int64(12), "Tom", int8(18), (*sql.NullString)(nil)}

	testCases := []struct {
		name        string
		p           Provider
		vals        []*TestModel
		columns     []string
		upsert      *Upsert
		wantQueries []string
		wantArgs    [][]any
		wantRows    int64
		wantErr     error
	}{
		{
			name:        "single row",
			p:           NewMySQLProvider(),
			vals:        []*TestModel{row},
			wantQueries: []string{"INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?);"},
			wantArgs:    [][]any{rowArgs},
			wantRows:    1,
		},
		{
			name: "multiple rows one batch",
			p:    NewMySQLProvider(),
			vals: []*TestModel{row, {Id: 13, FirstName: "Jerry", Age: 35}},
			wantQueries: []string{
				"INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?),(?,?,?,?);",
			},
			wantArgs: [][]any{{int64(12), "Tom", int8(18), (*sql.NullString)(nil),
				int64(13), "Jerry", int8(35), (*sql.NullString)(nil)}},
			wantRows: 2,
		},
		{
			name:        "partial columns",
			p:           NewMySQLProvider(),
			vals:        []*TestModel{row},
			columns:     []string{"Id", "FirstName"},
			wantQueries: []string{"INSERT INTO `test_model` (`id`,`first_name`) VALUES (?,?);"},
			wantArgs:    [][]any{{int64(12), "Tom"}},
			wantRows:    1,
		},
		{
			// 冲突后沿用本次插入的值
			name:   "mysql upsert keep inserted",
			p:      NewMySQLProvider(),
			vals:   []*TestModel{row},
			upsert: &Upsert{assigns: []Assignable{C("FirstName")}},
			wantQueries: []string{
				"INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?)" +
					" ON DUPLICATE KEY UPDATE `first_name`=VALUES(`first_name`);",
			},
			wantArgs: [][]any{rowArgs},
			wantRows: 1,
		},
		{
			name:   "mysql upsert assignment",
			p:      NewMySQLProvider(),
			vals:   []*TestModel{row},
			upsert: &Upsert{assigns: []Assignable{Assign("Age", 19)}},
			wantQueries: []string{
				"INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?)" +
					" ON DUPLICATE KEY UPDATE `age`=?;",
			},
			wantArgs: [][]any{append(append([]any{}, rowArgs...), 19)},
			wantRows: 1,
		},
		{
			name: "sqlite conflict upsert",
			p:    NewSQLiteProvider(),
			vals: []*TestModel{row},
			upsert: &Upsert{
				conflictColumns: []string{"Id"},
				assigns:         []Assignable{C("FirstName")},
			},
			wantQueries: []string{
				"INSERT INTO `test_model` (`id`,`first_name`,`age`,`last_name`) VALUES (?,?,?,?)" +
					" ON CONFLICT(`id`) DO UPDATE SET `first_name`=excluded.`first_name`;",
			},
			wantArgs: [][]any{rowArgs},
			wantRows: 1,
		},
		{
			name: "postgres markers",
			p:    NewPostgresProvider(),
			vals: []*TestModel{row, {Id: 13, FirstName: "Jerry", Age: 35}},
			wantQueries: []string{
				`INSERT INTO "test_model" ("id","first_name","age","last_name") VALUES ($1,$2,$3,$4),($5,$6,$7,$8);`,
			},
			wantRows: 2,
		},
		{
			name:    "empty source",
			p:       NewMySQLProvider(),
			vals:    []*TestModel{},
			wantErr: errs.ErrInsertZeroRow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fields := fieldsOf(t, m, tc.columns)
			sess := &testSession{
				rowsAffected: func(args []any) int64 {
					return int64(len(args) / len(fields))
				},
			}

			rows, err := tc.p.InsertItems(context.Background(), sess, m,
				fields, newRowSource(m, fields, tc.vals), 0, tc.upsert)
			assert.Equal(t, tc.wantErr, err)
			if err != nil {
				assert.Empty(t, sess.execs)
				return
			}
			assert.Equal(t, tc.wantRows, rows)

			queries := make([]string, 0, len(sess.execs))
			for _, e := range sess.execs {
				queries = append(queries, e.query)
			}
			assert.Equal(t, tc.wantQueries, queries)

			if tc.wantArgs != nil {
				for i, e := range sess.execs {
					assert.Equal(t, tc.wantArgs[i], e.args)
				}
			}
		})
	}
}

func TestInsertItemsBatching(t *testing.T) {
	r := model.NewRegistry()
	m, err := r.Get(&TestModel{})
	require.NoError(t, err)

	manyRows := func(n int) []*TestModel {
		res := make([]*TestModel, 0, n)
		for i := 0; i < n; i++ {
			res = append(res, &TestModel{Id: int64(i + 1), FirstName: fmt.Sprintf("name-%d", i)})
		}
		return res
	}

	perExec := func(sess *testSession, nFields int) []int {
		res := make([]int, 0, len(sess.execs))
		for _, e := range sess.execs {
			res = append(res, len(e.args)/nFields)
		}
		return res
	}

	t.Run("37 rows batch size 10", func(t *testing.T) {
		sess := &testSession{rowsAffected: func(args []any) int64 {
			return int64(len(args) / 4)
		}}
		rows, err := NewMySQLProvider().InsertItems(context.Background(), sess, m,
			m.Fields, newRowSource(m, m.Fields, manyRows(37)), 10, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(37), rows)
		assert.Equal(t, []int{10, 10, 10, 7}, perExec(sess, 4))
	})

	t.Run("provider default batch size", func(t *testing.T) {
		p := newStubProvider()
		p.batchSize = 5
		sess := &testSession{rowsAffected: func(args []any) int64 {
			return int64(len(args) / 4)
		}}
		rows, err := p.InsertItems(context.Background(), sess, m,
			m.Fields, newRowSource(m, m.Fields, manyRows(12)), 0, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(12), rows)
		assert.Equal(t, []int{5, 5, 2}, perExec(sess, 4))
	})

	t.Run("sqlite bind var clamp", func(t *testing.T) {
		// 999 个绑定变量上限，4 列一行，一批最多 249 行
		sess := &testSession{rowsAffected: func(args []any) int64 {
			return int64(len(args) / 4)
		}}
		rows, err := NewSQLiteProvider().InsertItems(context.Background(), sess, m,
			m.Fields, newRowSource(m, m.Fields, manyRows(250)), 500, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(250), rows)
		assert.Equal(t, []int{249, 1}, perExec(sess, 4))
	})
}

func TestInsertAll(t *testing.T) {
	ctx := context.Background()

	t.Run("provider path", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = mockDB.Close() }()

		var captured *OpContext
		db, err := OpenDB(mockDB,
			DBWithExtraProviders(newStubProvider()),
			DBWithMiddlewares(func(next Handler) Handler {
				return func(ctx context.Context, oc *OpContext) *OpResult {
					captured = oc
					return next(ctx, oc)
				}
			}))
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO `test_model` .*").
			WillReturnResult(sqlmock.NewResult(0, 2))

		rows, err := For[TestModel](db).InsertSlice(ctx,
			&TestModel{Id: 1, FirstName: "Tom"},
			&TestModel{Id: 2, FirstName: "Jerry"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)
		assert.NoError(t, mock.ExpectationsWereMet())

		require.NotNil(t, captured)
		assert.Equal(t, OpTypeInsert, captured.Type)
		// 批量 INSERT 的上下文里没有单独的一条语句
		assert.Nil(t, captured.Query)
		assert.NotEmpty(t, captured.OpID)
		assert.False(t, captured.Fallback)
	})

	t.Run("fallback path", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = mockDB.Close() }()

		var captured *OpContext
		db, err := OpenDB(mockDB,
			DBWithMiddlewares(func(next Handler) Handler {
				return func(ctx context.Context, oc *OpContext) *OpResult {
					captured = oc
					return next(ctx, oc)
				}
			}))
		require.NoError(t, err)

		// 兜底路径标识符不加引号，逐行执行
		stmt := regexp.QuoteMeta("INSERT INTO test_model (id,first_name,age,last_name) VALUES (?,?,?,?);")
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(2, 1))

		rows, err := For[TestModel](db).InsertSlice(ctx,
			&TestModel{Id: 1, FirstName: "Tom"},
			&TestModel{Id: 2, FirstName: "Jerry"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)
		assert.NoError(t, mock.ExpectationsWereMet())

		require.NotNil(t, captured)
		assert.True(t, captured.Fallback)
	})

	t.Run("invalid column", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = mockDB.Close() }()

		db, err := OpenDB(mockDB)
		require.NoError(t, err)

		_, err = For[TestModel](db).Columns("Invalid").
			InsertSlice(ctx, &TestModel{Id: 1})
		assert.Equal(t, errs.NewErrUnknownField("Invalid"), err)
	})

	t.Run("no rows", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = mockDB.Close() }()

		db, err := OpenDB(mockDB, DBWithExtraProviders(newStubProvider()))
		require.NoError(t, err)

		_, err = For[TestModel](db).InsertSlice(ctx)
		assert.Equal(t, errs.ErrInsertZeroRow, err)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = mockDB.Close() }()

		db, err := OpenDB(mockDB, DBWithoutFallback())
		require.NoError(t, err)

		_, err = For[TestModel](db).InsertSlice(ctx, &TestModel{Id: 1})
		assert.ErrorIs(t, err, ErrUnsupportedOperation)
	})
}
