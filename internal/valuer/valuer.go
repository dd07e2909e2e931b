package valuer

import (
	"database/sql"

	"github.com/coderi421/ikkatsu/model"
)

// Value 是对结构体实例的内部抽象：
// 批量 INSERT 按属性名逐列取值，兜底路径把结果集写回实例
type Value interface {
	// Field 按 go struct 的属性名取值
	Field(name string) (any, error)
	// SetColumns 将数据库中的数据设置到对应的 struct 上
	SetColumns(rows *sql.Rows) error
}

// Creator 本质上也是 factory 模式
// 用来在 reflect 和 unsafe 两种实现之间切换
type Creator func(val any, meta *model.Model) Value
