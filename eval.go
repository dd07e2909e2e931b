package ikkatsu

import (
	"reflect"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/internal/valuer"
)

// 内存谓词求值器。兜底路径把表拉进内存之后，
// 用它对每一行复算 WHERE 条件和 SET 表达式,
// 语义要和数据库里跑 SQL 一致

// evalPredicates 把多个 Predicate 按 And 合并之后求值
func evalPredicates(val valuer.Value, ps []Predicate) (bool, error) {
	if len(ps) == 0 {
		return true, nil
	}
	p := ps[0]
	for i := 1; i < len(ps); i++ {
		p = p.And(ps[i])
	}
	return evalBool(val, p)
}

// evalBool 求值并断言结果是布尔
func evalBool(val valuer.Value, expr Expression) (bool, error) {
	res, err := evalExpression(val, expr)
	if err != nil {
		return false, err
	}
	b, ok := res.(bool)
	if !ok {
		return false, errs.NewErrUnsupportedExpressionType(expr)
	}
	return b, nil
}

// evalExpression 对一行数据求出表达式的值
// RawExpr 是黑盒 SQL，在内存里没法求值，直接拒绝
func evalExpression(val valuer.Value, expr Expression) (any, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case Column:
		return val.Field(e.name)
	case value:
		return e.val, nil
	case Predicate:
		return evalPredicate(val, e)
	case MathExpr:
		return evalMath(val, e)
	default:
		return nil, errs.NewErrUnsupportedExpressionType(expr)
	}
}

func evalPredicate(val valuer.Value, p Predicate) (any, error) {
	switch p.op {
	case "":
		// 只有左边的退化形态，比如 Assign 包出来的纯值
		return evalExpression(val, p.left)
	case opNOT:
		b, err := evalBool(val, p.right)
		if err != nil {
			return nil, err
		}
		return !b, nil
	case opAND:
		l, err := evalBool(val, p.left)
		if err != nil {
			return nil, err
		}
		r, err := evalBool(val, p.right)
		if err != nil {
			return nil, err
		}
		return l && r, nil
	case opOR:
		l, err := evalBool(val, p.left)
		if err != nil {
			return nil, err
		}
		r, err := evalBool(val, p.right)
		if err != nil {
			return nil, err
		}
		return l || r, nil
	case opEQ, opNEQ, opLT, opLE, opGT, opGE:
		l, err := evalExpression(val, p.left)
		if err != nil {
			return nil, err
		}
		r, err := evalExpression(val, p.right)
		if err != nil {
			return nil, err
		}
		return compareValues(p.op, l, r)
	default:
		return nil, errs.NewErrUnsupportedExpressionType(p)
	}
}

// compareValues 模拟数据库的弱类型比较：
// 整数之间跨位宽可比，整数和浮点也可比，其余类型只支持相等性判断
func compareValues(o op, l any, r any) (bool, error) {
	if li, ok := toInt64(l); ok {
		if ri, ok := toInt64(r); ok {
			return compareOrdered(o, li, ri)
		}
	}
	if lu, ok := toUint64(l); ok {
		if ru, ok := toUint64(r); ok {
			return compareOrdered(o, lu, ru)
		}
	}
	if lf, ok := toFloat64(l); ok {
		if rf, ok := toFloat64(r); ok {
			return compareOrdered(o, lf, rf)
		}
	}
	if ls, ok := toString(l); ok {
		if rs, ok := toString(r); ok {
			return compareOrdered(o, ls, rs)
		}
	}
	switch o {
	case opEQ:
		return reflect.DeepEqual(l, r), nil
	case opNEQ:
		return !reflect.DeepEqual(l, r), nil
	default:
		return false, errs.NewErrUnsupportedOperands(l, r)
	}
}

func compareOrdered[E int64 | uint64 | float64 | string](o op, l E, r E) (bool, error) {
	switch o {
	case opEQ:
		return l == r, nil
	case opNEQ:
		return l != r, nil
	case opLT:
		return l < r, nil
	case opLE:
		return l <= r, nil
	case opGT:
		return l > r, nil
	case opGE:
		return l >= r, nil
	default:
		return false, errs.NewErrUnsupportedExpressionType(o)
	}
}

func evalMath(val valuer.Value, e MathExpr) (any, error) {
	l, err := evalExpression(val, e.left)
	if err != nil {
		return nil, err
	}
	r, err := evalExpression(val, e.right)
	if err != nil {
		return nil, err
	}
	return applyArith(e.op, l, r)
}

// applyArith 两边都是整数就走 int64，否则退到 float64
func applyArith(o op, l any, r any) (any, error) {
	if li, ok := toInt64(l); ok {
		if ri, ok := toInt64(r); ok {
			switch o {
			case opAdd:
				return li + ri, nil
			case opSub:
				return li - ri, nil
			case opMulti:
				return li * ri, nil
			default:
				return nil, errs.NewErrUnsupportedExpressionType(o)
			}
		}
	}
	lf, lok := toFloat64(l)
	rf, rok := toFloat64(r)
	if !lok || !rok {
		return nil, errs.NewErrUnsupportedOperands(l, r)
	}
	switch o {
	case opAdd:
		return lf + rf, nil
	case opSub:
		return lf - rf, nil
	case opMulti:
		return lf * rf, nil
	default:
		return nil, errs.NewErrUnsupportedExpressionType(o)
	}
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	default:
		return 0, false
	}
}

func toUint64(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
