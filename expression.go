package ikkatsu

// RawExpr 代表一个原生表达式
// 意味着 ikkatsu 不会对它进行任何处理
type RawExpr struct {
	raw  string
	args []any
}

func (r RawExpr) expr() {}

// Raw 创建一个 RawExpr
// 片段里的 ? 会被提升成具名参数，@ 在片段文本里是保留字符
func Raw(expr string, args ...any) RawExpr {
	return RawExpr{
		raw:  expr,
		args: args,
	}
}

// AsPredicate 把原生表达式当做查询条件使用
// 例如 Raw("`age` < ?", 18).AsPredicate()
func (r RawExpr) AsPredicate() Predicate {
	return Predicate{
		left: r,
	}
}

type binaryExpr struct {
	left  Expression
	op    op
	right Expression
}

func (binaryExpr) expr() {}

type MathExpr binaryExpr

func (m MathExpr) expr() {}

func (m MathExpr) Add(val any) MathExpr {
	return MathExpr{
		left:  m,
		op:    opAdd,
		right: valueOf(val),
	}
}

func (m MathExpr) Sub(val any) MathExpr {
	return MathExpr{
		left:  m,
		op:    opSub,
		right: valueOf(val),
	}
}

func (m MathExpr) Multi(val any) MathExpr {
	return MathExpr{
		left:  m,
		op:    opMulti,
		right: valueOf(val),
	}
}
