package ikkatsu

import (
	"context"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/internal/valuer"
	"github.com/coderi421/ikkatsu/model"
	"github.com/google/uuid"
)

type Upsert struct {
	conflictColumns []string
	assigns         []Assignable
}

type UpsertBuilder[T any] struct {
	b               *BatchOperation[T]
	conflictColumns []string
}

// OnDuplicateKey 进入 upsert 子句的构造
func (b *BatchOperation[T]) OnDuplicateKey() *UpsertBuilder[T] {
	return &UpsertBuilder[T]{
		b: b,
	}
}

// ConflictColumns 指定冲突列，SQLite 和 Postgres 的 ON CONFLICT 需要
func (u *UpsertBuilder[T]) ConflictColumns(cols ...string) *UpsertBuilder[T] {
	u.conflictColumns = cols
	return u
}

// Update 指定冲突后的赋值，传 Column 表示沿用本次插入的值
func (u *UpsertBuilder[T]) Update(assigns ...Assignable) *BatchOperation[T] {
	u.b.upsert = &Upsert{
		conflictColumns: u.conflictColumns,
		assigns:         assigns,
	}
	return u.b
}

// InsertSlice 插入一批已经在内存里的数据
func (b *BatchOperation[T]) InsertSlice(ctx context.Context, vals ...*T) (int64, error) {
	return b.InsertAll(ctx, FromSlice(vals))
}

// InsertAll 惰性消费 items 并分批插入，返回受影响的行数
// 整个序列不会被一次性物化，一次只在内存里保留一批
func (b *BatchOperation[T]) InsertAll(ctx context.Context, items Iterator[T]) (int64, error) {
	m, err := b.resolveModel(new(T))
	if err != nil {
		return 0, err
	}

	fields := m.Fields
	if len(b.columns) != 0 {
		// 如果只插入部分字段
		fields = make([]*model.Field, 0, len(b.columns))
		for _, c := range b.columns {
			fd, ok := m.FieldMap[c]
			if !ok {
				return 0, errs.NewErrUnknownField(c)
			}
			fields = append(fields, fd)
		}
	}

	p := b.selectProvider(b.sess.driver())
	useFallback := p == nil || !p.CanInsert()
	if useFallback {
		if !b.fallback {
			return 0, errs.NewErrUnsupportedOperation(OpTypeInsert, b.sess.driver())
		}
		b.logProviderMiss(OpTypeInsert, b.sess.driver(), p)
	}

	src := &iterSource[T]{
		iter:    items,
		fields:  fields,
		meta:    m,
		creator: b.valCreator,
	}

	var root Handler = func(ctx context.Context, oc *OpContext) *OpResult {
		var (
			rows int64
			err  error
		)
		if oc.Fallback {
			rows, err = fallbackInsert(ctx, b.sess, m, fields, src)
		} else {
			rows, err = p.InsertItems(ctx, b.sess, m, fields, src, b.batchSize, b.upsert)
		}
		return &OpResult{Rows: rows, Err: err}
	}

	for j := len(b.mdls) - 1; j >= 0; j-- {
		root = b.mdls[j](root)
	}

	res := root(ctx, &OpContext{
		Type:     OpTypeInsert,
		Model:    m,
		OpID:     uuid.New().String(),
		Fallback: useFallback,
	})
	return res.Rows, res.Err
}

// iterSource 把 Iterator 适配成 RowSource
// 列值在取行的时候才通过 valuer 读取，不会整体物化
type iterSource[T any] struct {
	iter    Iterator[T]
	fields  []*model.Field
	meta    *model.Model
	creator valuer.Creator
}

func (s *iterSource[T]) Next() bool {
	return s.iter.Next()
}

func (s *iterSource[T]) Row() ([]any, error) {
	val := s.creator(s.iter.Value(), s.meta)
	row := make([]any, 0, len(s.fields))
	for _, fd := range s.fields {
		v, err := val.Field(fd.GoName)
		if err != nil {
			return nil, err
		}
		row = append(row, v)
	}
	return row, nil
}

func (s *iterSource[T]) Err() error {
	return s.iter.Err()
}

func (s *iterSource[T]) Close() error {
	return s.iter.Close()
}
