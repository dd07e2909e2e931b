package ikkatsu

// Query 是最终可以执行的查询
// SQL 里的占位符已经是方言自己的形式，Args 的顺序和占位符出现的顺序一致
type Query struct {
	SQL  string
	Args []any
}

// Param 一个命名参数
type Param struct {
	Name  string
	Value any
}

// QueryInfo 谓词编译之后的中间形态：
// 一段带 @name 占位符的 SQL 片段，加上按生成顺序排列的命名参数。
// 同一个 QueryInfo 里参数名不会重复
type QueryInfo struct {
	SQL    string
	Params []Param
}

// hasParam reports whether the given name is already taken.
func (q *QueryInfo) hasParam(name string) bool {
	if q == nil {
		return false
	}
	for _, p := range q.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}
