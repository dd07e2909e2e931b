package ikkatsu

import (
	"context"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/google/uuid"
)

// Delete 删除匹配谓词的行，返回受影响的行数
func (f *FilteredBatchOperation[T]) Delete(ctx context.Context) (int64, error) {
	b := f.op
	if len(f.where) == 0 {
		return 0, errs.ErrEmptyPredicate
	}

	m, err := b.resolveModel(new(T))
	if err != nil {
		return 0, err
	}

	p := b.selectProvider(b.sess.driver())
	useFallback := p == nil || !p.CanDelete()

	oc := &OpContext{
		Type:     OpTypeDelete,
		Model:    m,
		OpID:     uuid.New().String(),
		Fallback: useFallback,
	}

	var root Handler
	if useFallback {
		if !b.fallback {
			return 0, errs.NewErrUnsupportedOperation(OpTypeDelete, b.sess.driver())
		}
		b.logProviderMiss(OpTypeDelete, b.sess.driver(), p)
		root = func(ctx context.Context, oc *OpContext) *OpResult {
			rows, err := f.fallbackDelete(ctx, m)
			return &OpResult{Rows: rows, Err: err}
		}
	} else {
		w, err := p.GetQueryInformation(m, f.where)
		if err != nil {
			return 0, err
		}
		q, err := p.GetDeleteQuery(m, w)
		if err != nil {
			return 0, err
		}
		oc.Query = q
		root = execHandler(b.sess)
	}

	for j := len(b.mdls) - 1; j >= 0; j-- {
		root = b.mdls[j](root)
	}

	res := root(ctx, oc)
	return res.Rows, res.Err
}

// TruncateTable 清空整张表
// 用方言的 TRUNCATE，没有 TRUNCATE 的方言退化成不带 WHERE 的 DELETE。
// 清空受 CanDelete 能力开关控制
func (b *BatchOperation[T]) TruncateTable(ctx context.Context) (int64, error) {
	m, err := b.resolveModel(new(T))
	if err != nil {
		return 0, err
	}

	p := b.selectProvider(b.sess.driver())
	useFallback := p == nil || !p.CanDelete()

	oc := &OpContext{
		Type:     OpTypeTruncate,
		Model:    m,
		OpID:     uuid.New().String(),
		Fallback: useFallback,
	}

	var root Handler
	if useFallback {
		if !b.fallback {
			return 0, errs.NewErrUnsupportedOperation(OpTypeTruncate, b.sess.driver())
		}
		b.logProviderMiss(OpTypeTruncate, b.sess.driver(), p)
		root = func(ctx context.Context, oc *OpContext) *OpResult {
			rows, err := fallbackTruncate(ctx, b.sess, m)
			return &OpResult{Rows: rows, Err: err}
		}
	} else {
		q, err := p.GetTruncateQuery(m)
		if err != nil {
			return 0, err
		}
		oc.Query = q
		root = execHandler(b.sess)
	}

	for j := len(b.mdls) - 1; j >= 0; j-- {
		root = b.mdls[j](root)
	}

	res := root(ctx, oc)
	return res.Rows, res.Err
}
