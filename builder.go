package ikkatsu

import (
	"strconv"
	"strings"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
)

// translator 把谓词 AST 翻译成带命名占位符的 SQL 片段
// 每个捕获的字面量生成一个 @pN 参数，N 在一个片段内单调递增，
// 所以单个片段里参数名天然不会重复
type translator struct {
	sb     strings.Builder // sb is used to build the SQL fragment.
	params []Param         // params holds the named parameters in generation order.
	model  *model.Model    // model is the mapping of the entity being translated.
	quoter byte
}

func newTranslator(m *model.Model, quoter byte) *translator {
	return &translator{
		model:  m,
		quoter: quoter,
	}
}

func (t *translator) quote(name string) {
	t.sb.WriteByte(t.quoter)
	t.sb.WriteString(name)
	t.sb.WriteByte(t.quoter)
}

// writeTable 拼接表名，有 schema 的时候带上 schema 前缀
func (t *translator) writeTable() {
	if t.model.SchemaName != "" {
		t.quote(t.model.SchemaName)
		t.sb.WriteByte('.')
	}
	t.quote(t.model.TableName)
}

// addParam 生成下一个命名参数，把 @pN 写进片段，把值追加到参数列表
func (t *translator) addParam(val any) {
	name := "p" + strconv.Itoa(len(t.params))
	t.sb.WriteByte('@')
	t.sb.WriteString(name)
	t.params = append(t.params, Param{Name: name, Value: val})
}

func (t *translator) buildColumn(c Column) error {
	fd, ok := t.model.FieldMap[c.name]
	if !ok {
		return errs.NewErrUnknownField(c.name)
	}
	t.quote(fd.ColName)
	return nil
}

// buildPredicates builds the fragment for the given list of predicates.
func (t *translator) buildPredicates(ps []Predicate) error {
	// Take the first predicate as the starting node.
	p := ps[0]

	// Merge the remaining predicates using the `And` method.
	for i := 1; i < len(ps); i++ {
		p = p.And(ps[i])
	}

	return t.buildExpression(p)
}

// buildExpression 递归渲染表达式
// Column 代表列名，直接拼接列名
// value 代表参数，生成一个命名占位符
// Predicate 和 MathExpr 都是二元结构，复合的一边加括号
func (t *translator) buildExpression(e Expression) error {
	if e == nil {
		return nil
	}

	switch expr := e.(type) {
	case Column:
		return t.buildColumn(expr)
	case value:
		t.addParam(expr.val)
	case RawExpr:
		// 原生片段里的 ? 逐个换成命名参数，
		// 保证整个片段对 provider 来说只有 @name 一种占位符
		t.writeRaw(expr)
	case Predicate:
		return t.buildBinaryExpr(binaryExpr(expr))
	case MathExpr:
		return t.buildBinaryExpr(binaryExpr(expr))
	case binaryExpr:
		return t.buildBinaryExpr(expr)
	default:
		return errs.NewErrUnsupportedExpressionType(expr)
	}

	return nil
}

func (t *translator) writeRaw(r RawExpr) {
	raw := r.raw
	args := r.args
	for i := 0; i < len(raw); i++ {
		if raw[i] == '?' && len(args) > 0 {
			t.addParam(args[0])
			args = args[1:]
			continue
		}
		t.sb.WriteByte(raw[i])
	}
}

func (t *translator) buildBinaryExpr(e binaryExpr) error {
	if err := t.buildSubExpr(e.left); err != nil {
		return err
	}

	if e.op == "" {
		// 只有左边，例如原生表达式做谓词，或者 SET 来源的合成谓词
		return nil
	}

	t.sb.WriteByte(' ')
	t.sb.WriteString(e.op.String())
	t.sb.WriteByte(' ')

	return t.buildSubExpr(e.right)
}

// buildSubExpr 渲染二元结构的一边，复合结构在最外边套一层括号
func (t *translator) buildSubExpr(e Expression) error {
	switch sub := e.(type) {
	case Predicate:
		t.sb.WriteByte('(')
		if err := t.buildBinaryExpr(binaryExpr(sub)); err != nil {
			return err
		}
		t.sb.WriteByte(')')
	case MathExpr:
		t.sb.WriteByte('(')
		if err := t.buildBinaryExpr(binaryExpr(sub)); err != nil {
			return err
		}
		t.sb.WriteByte(')')
	default:
		return t.buildExpression(e)
	}
	return nil
}

func (t *translator) info() *QueryInfo {
	return &QueryInfo{
		SQL:    t.sb.String(),
		Params: t.params,
	}
}
