package ikkatsu

import (
	"context"
	"strings"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
)

// 逐行兜底路径。没有 provider 认识当前驱动的时候，
// 用最朴素的 SQL 逐行执行，换正确性不换性能：
// 标识符不加引号，占位符统一用 ?，这是对陌生驱动最稳的写法

// writeFallbackTable 拼接不带引号的表名
func writeFallbackTable(sb *strings.Builder, m *model.Model) {
	if m.SchemaName != "" {
		sb.WriteString(m.SchemaName)
		sb.WriteByte('.')
	}
	sb.WriteString(m.TableName)
}

// fallbackInsert 逐行插入，第一个错误终止剩余行
func fallbackInsert(ctx context.Context, sess Session, m *model.Model,
	fields []*model.Field, src RowSource) (int64, error) {
	defer func() {
		_ = src.Close()
	}()

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	writeFallbackTable(&sb, m)
	sb.WriteString(" (")
	for i, fd := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fd.ColName)
	}
	sb.WriteString(") VALUES (")
	for i := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('?')
	}
	sb.WriteString(");")
	stmt := sb.String()

	var total int64
	idx := 0
	for src.Next() {
		row, err := src.Row()
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeInsert, idx, err)
		}
		res, err := sess.ExecContext(ctx, stmt, row...)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeInsert, idx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeInsert, idx, err)
		}
		total += n
		idx++
	}
	if err := src.Err(); err != nil {
		return total, errs.NewErrFallbackExecution(OpTypeInsert, idx, err)
	}
	if idx == 0 {
		return 0, errs.ErrInsertZeroRow
	}
	return total, nil
}

// loadAllRows 把整张表读进内存，逐行扫描成实体
// 兜底的 UPDATE/DELETE 在内存里求谓词，所以需要完整的行数据
func loadAllRows[T any](ctx context.Context, sess Session, c core, m *model.Model) ([]*T, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	for i, fd := range m.Fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fd.ColName)
	}
	sb.WriteString(" FROM ")
	writeFallbackTable(&sb, m)
	sb.WriteByte(';')

	rows, err := sess.QueryContext(ctx, sb.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var res []*T
	for rows.Next() {
		tp := new(T)
		val := c.valCreator(tp, m)
		if err = val.SetColumns(rows); err != nil {
			return nil, err
		}
		res = append(res, tp)
	}
	return res, rows.Err()
}

// fallbackUpdate 加载全部行，在内存里求谓词和 modifier，
// 对匹配的行按主键逐行 UPDATE
func (f *FilteredBatchOperation[T]) fallbackUpdate(ctx context.Context,
	m *model.Model, assigns []Assignment) (int64, error) {
	b := f.op
	pk := m.PrimaryKey
	if pk == nil {
		return 0, errs.ErrNoPrimaryKey
	}

	entities, err := loadAllRows[T](ctx, b.sess, b.core, m)
	if err != nil {
		return 0, errs.NewErrFallbackExecution(OpTypeUpdate, 0, err)
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	writeFallbackTable(&sb, m)
	sb.WriteString(" SET ")
	for i, a := range assigns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(m.FieldMap[a.column].ColName)
		sb.WriteString(" = ?")
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(pk.ColName)
	sb.WriteString(" = ?;")
	stmt := sb.String()

	var total int64
	for idx, ent := range entities {
		val := b.valCreator(ent, m)
		match, err := evalPredicates(val, f.where)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeUpdate, idx, err)
		}
		if !match {
			continue
		}

		// modifier 基于这一行的当前值求出新值
		args := make([]any, 0, len(assigns)+1)
		for _, a := range assigns {
			nv, err := evalExpression(val, a.val)
			if err != nil {
				return total, errs.NewErrFallbackExecution(OpTypeUpdate, idx, err)
			}
			args = append(args, nv)
		}
		pkVal, err := val.Field(pk.GoName)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeUpdate, idx, err)
		}
		args = append(args, pkVal)

		res, err := b.sess.ExecContext(ctx, stmt, args...)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeUpdate, idx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeUpdate, idx, err)
		}
		total += n
	}
	return total, nil
}

// fallbackDelete 加载全部行，对匹配谓词的行按主键逐行 DELETE
func (f *FilteredBatchOperation[T]) fallbackDelete(ctx context.Context, m *model.Model) (int64, error) {
	b := f.op
	pk := m.PrimaryKey
	if pk == nil {
		return 0, errs.ErrNoPrimaryKey
	}

	entities, err := loadAllRows[T](ctx, b.sess, b.core, m)
	if err != nil {
		return 0, errs.NewErrFallbackExecution(OpTypeDelete, 0, err)
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	writeFallbackTable(&sb, m)
	sb.WriteString(" WHERE ")
	sb.WriteString(pk.ColName)
	sb.WriteString(" = ?;")
	stmt := sb.String()

	var total int64
	for idx, ent := range entities {
		val := b.valCreator(ent, m)
		match, err := evalPredicates(val, f.where)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeDelete, idx, err)
		}
		if !match {
			continue
		}

		pkVal, err := val.Field(pk.GoName)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeDelete, idx, err)
		}
		res, err := b.sess.ExecContext(ctx, stmt, pkVal)
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeDelete, idx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, errs.NewErrFallbackExecution(OpTypeDelete, idx, err)
		}
		total += n
	}
	return total, nil
}

// fallbackTruncate 不带 WHERE 的 DELETE
func fallbackTruncate(ctx context.Context, sess Session, m *model.Model) (int64, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	writeFallbackTable(&sb, m)
	sb.WriteByte(';')

	res, err := sess.ExecContext(ctx, sb.String())
	if err != nil {
		return 0, errs.NewErrFallbackExecution(OpTypeTruncate, 0, err)
	}
	return res.RowsAffected()
}
