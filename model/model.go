package model

import "reflect"

// Option is a function type that modifies a Model.
type Option func(model *Model) error

// Model 结构体映射 db 后的结构
// 引擎只使用这一张表的映射，不支持多表继承那种花样
type Model struct {
	// SchemaName 库名/模式名，可以为空，为空时 SQL 里不带前缀
	SchemaName string
	// TableName 结构体对应的表名
	TableName string
	// Fields 按结构体字段声明顺序排列，
	// 批量 INSERT 的列序就是这里的顺序，要保证稳定
	Fields    []*Field
	FieldMap  map[string]*Field // 结构体 属性名 attr name 为 key  ItemId
	ColumnMap map[string]*Field // DB column name 为 key    item_id
	// PrimaryKey 兜底路径逐行定位用的主键字段，可能为 nil
	PrimaryKey *Field
}

// Field 字段相关的属性
type Field struct {
	ColName string       // 数据库中的字段名
	GoName  string       // go struct 中的名字
	Type    reflect.Type // go 中的数据类型，转换成 reflect.Value 的时候，知道是什么类型，不然那没法转
	// Offset 相对于对象起始地址的字段偏移量
	// uintptr 这个类型的值，只是简单记录一下位置
	Offset uintptr
	// Index 结构体中的字段下标，反射取值的时候用
	Index int
	// IsPrimary 来自 orm:"pk" 标签，或者字段名是 Id/ID 的约定
	IsPrimary bool
}

// 我们支持的全部标签上的 key 都放在这里
// 方便用户查找，和我们后期维护
const (
	tagKeyColumn = "column"
	tagKeyPK     = "pk"
	tagKeyIgnore = "-"
	tagORMName   = "orm"
)

// TableName 用户实现这个接口来返回自定义的表名
type TableName interface {
	TableName() string
}

// TableSchema 用户实现这个接口来返回库名/模式名
type TableSchema interface {
	TableSchema() string
}
