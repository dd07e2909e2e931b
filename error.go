package ikkatsu

import "github.com/coderi421/ikkatsu/internal/errs"

// 将内部的 sentinel error 暴露出去
var (
	// ErrPointerOnly 实体必须是一级结构体指针
	ErrPointerOnly = errs.ErrPointerOnly

	// ErrInsertZeroRow 迭代器一行数据都没产出
	ErrInsertZeroRow = errs.ErrInsertZeroRow

	// ErrNoUpdatedColumns Update 没有传任何赋值
	ErrNoUpdatedColumns = errs.ErrNoUpdatedColumns

	// ErrEmptyPredicate Update 和 Delete 缺少 WHERE 条件
	ErrEmptyPredicate = errs.ErrEmptyPredicate

	// ErrMappingNotFound 实体类型解析不出表映射
	ErrMappingNotFound = errs.ErrMappingNotFound

	// ErrUnsupportedOperation 没有 provider 能处理，兜底又被关了
	ErrUnsupportedOperation = errs.ErrUnsupportedOperation

	// ErrNoPrimaryKey 兜底的逐行更新和删除需要主键
	ErrNoPrimaryKey = errs.ErrNoPrimaryKey
)
