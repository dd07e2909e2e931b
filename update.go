package ikkatsu

import (
	"context"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
	"github.com/google/uuid"
)

// Update 把匹配谓词的行的目标列更新成 modifier 表达式的值
// 例如 Where(C("Age").GT(30)).Update(ctx, Assign("Status", "inactive"))
// 或者自增 Update(ctx, Assign("Age", C("Age").Add(1)))
func (f *FilteredBatchOperation[T]) Update(ctx context.Context, assigns ...Assignment) (int64, error) {
	b := f.op
	if len(assigns) == 0 {
		return 0, errs.ErrNoUpdatedColumns
	}
	if len(f.where) == 0 {
		return 0, errs.ErrEmptyPredicate
	}

	m, err := b.resolveModel(new(T))
	if err != nil {
		return 0, err
	}
	// 先校验目标字段，provider 和兜底两条路径共用这份检查
	for _, a := range assigns {
		if _, ok := m.FieldMap[a.column]; !ok {
			return 0, errs.NewErrUnknownField(a.column)
		}
	}

	p := b.selectProvider(b.sess.driver())
	useFallback := p == nil || !p.CanUpdate()

	oc := &OpContext{
		Type:     OpTypeUpdate,
		Model:    m,
		OpID:     uuid.New().String(),
		Fallback: useFallback,
	}

	var root Handler
	if useFallback {
		if !b.fallback {
			return 0, errs.NewErrUnsupportedOperation(OpTypeUpdate, b.sess.driver())
		}
		b.logProviderMiss(OpTypeUpdate, b.sess.driver(), p)
		root = func(ctx context.Context, oc *OpContext) *OpResult {
			rows, err := f.fallbackUpdate(ctx, m, assigns)
			return &OpResult{Rows: rows, Err: err}
		}
	} else {
		q, err := buildUpdateQuery(p, m, assigns, f.where)
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

// buildUpdateQuery 两次独立翻译加一次参数合并：
// 先翻译 WHERE，再把每个 SET 来源单独翻译成片段，
// 然后向合并集 reconcile，最后交给 provider 渲染完整语句
func buildUpdateQuery(p Provider, m *model.Model, assigns []Assignment, where []Predicate) (*Query, error) {
	w, err := p.GetQueryInformation(m, where)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(w.Params)+len(assigns))
	for _, pr := range w.Params {
		taken[pr.Name] = struct{}{}
	}

	sets := make([]SetClause, 0, len(assigns))
	for _, a := range assigns {
		// SET 来源复用谓词翻译机制：包一个只有左边的合成谓词
		info, err := p.GetQueryInformation(m, []Predicate{{left: a.val}})
		if err != nil {
			return nil, err
		}
		sets = append(sets, SetClause{
			Field: m.FieldMap[a.column],
			Info:  reconcileParams(taken, info),
		})
	}

	return p.GetUpdateQuery(m, sets, w)
}
