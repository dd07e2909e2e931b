package ikkatsu

// Assignable 标记接口
// 实现该接口意味着可以用于 Update 的 SET 部分
type Assignable interface {
	assign()
}

// Assignment 一次赋值，column 是 Go 结构体的字段名
// val 可以是普通值，也可以是 Column 或者 MathExpr
type Assignment struct {
	column string
	val    Expression
}

func (a Assignment) assign() {}

func Assign(column string, val any) Assignment {
	v, ok := val.(Expression)
	if !ok {
		v = valueOf(val)
	}
	return Assignment{
		column: column,
		val:    v,
	}
}
