package ikkatsu

type Column struct {
	name string
}

func C(name string) Column {
	return Column{name: name}
}

// assign 实现 Assignable 接口，Column 可以出现在 Update 的 SET 部分
func (c Column) assign() {}

func (c Column) expr() {}

type value struct {
	val any
}

func (value) expr() {}

func valueOf(val any) value {
	return value{
		val: val,
	}
}

// EQ 例如 C("id").EQ(12)
func (c Column) EQ(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opEQ,
		right: exprOf(arg),
	}
}

// NEQ 例如 C("id").NEQ(12)
func (c Column) NEQ(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opNEQ,
		right: exprOf(arg),
	}
}

func (c Column) LT(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opLT,
		right: exprOf(arg),
	}
}

func (c Column) LE(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opLE,
		right: exprOf(arg),
	}
}

func (c Column) GT(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opGT,
		right: exprOf(arg),
	}
}

func (c Column) GE(arg any) Predicate {
	return Predicate{
		left:  c,
		op:    opGE,
		right: exprOf(arg),
	}
}

// Add 例如 C("age").Add(1)，用于 SET age = age + 1 这种自增语义
func (c Column) Add(delta any) MathExpr {
	return MathExpr{
		left:  c,
		op:    opAdd,
		right: valueOf(delta),
	}
}

func (c Column) Sub(delta any) MathExpr {
	return MathExpr{
		left:  c,
		op:    opSub,
		right: valueOf(delta),
	}
}

func (c Column) Multi(delta any) MathExpr {
	return MathExpr{
		left:  c,
		op:    opMulti,
		right: valueOf(delta),
	}
}
