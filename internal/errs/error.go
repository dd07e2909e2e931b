package errs

import (
	"errors"
	"fmt"
)

// 集中管理所有的 sentinel error
// 这里的错误都是内部使用，对外通过根包的 error.go 暴露
var (
	// ErrPointerOnly 只支持一级指针作为输入，例如 *User
	ErrPointerOnly = errors.New("ikkatsu: only a one-level pointer to a struct is supported, e.g. *User")

	// ErrInsertZeroRow 插入 0 行
	ErrInsertZeroRow = errors.New("ikkatsu: no rows to insert")

	ErrNoUpdatedColumns = errors.New("ikkatsu: no columns to update")

	// ErrEmptyPredicate Update 和 Delete 必须带 WHERE 条件，
	// 防止误操作整张表。整表操作请用 TruncateTable
	ErrEmptyPredicate = errors.New("ikkatsu: the operation requires at least one predicate")

	// ErrMappingNotFound 元数据解析失败，并且强制刷新一次之后依然失败
	ErrMappingNotFound = errors.New("ikkatsu: no table mapping resolvable for the entity type")

	// ErrUnsupportedOperation 没有 provider 能处理这种连接，兜底路径又被禁用了
	ErrUnsupportedOperation = errors.New("ikkatsu: no capable provider and the fallback path is disabled")

	// ErrNoPrimaryKey 兜底路径的逐行 UPDATE/DELETE 需要主键定位行
	ErrNoPrimaryKey = errors.New("ikkatsu: the entity has no recognizable primary key")

	ErrTooManyReturnedColumns = errors.New("ikkatsu: the result set has more columns than the entity has fields")
)

func NewErrUnknownField(name string) error {
	return fmt.Errorf("ikkatsu: unknown field %s", name)
}

func NewErrUnknownColumn(name string) error {
	return fmt.Errorf("ikkatsu: unknown column %s", name)
}

// NewErrInvalidTagContent 返回标签格式错误
// 合法格式是 orm:"key=value" 或者 orm:"flag"
func NewErrInvalidTagContent(pair string) error {
	return fmt.Errorf("ikkatsu: invalid tag content %q", pair)
}

func NewErrUnsupportedExpressionType(exp any) error {
	return fmt.Errorf("ikkatsu: unsupported expression type %T", exp)
}

func NewErrUnsupportedAssignableType(exp any) error {
	return fmt.Errorf("ikkatsu: unsupported assignable type %T", exp)
}

// NewErrMappingNotFound 包装具体的类型信息，
// 使用 %w 保证调用方可以 errors.Is(err, ErrMappingNotFound)
func NewErrMappingNotFound(typeName string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrMappingNotFound, typeName)
	}
	return fmt.Errorf("%w: %s: %s", ErrMappingNotFound, typeName, cause.Error())
}

// NewErrUnsupportedOperation 包装动词和驱动类型，方便排查是哪类连接没被认出来
func NewErrUnsupportedOperation(verb string, driver any) error {
	return fmt.Errorf("%w: %s on driver %T", ErrUnsupportedOperation, verb, driver)
}

// NewErrFallbackExecution 逐行兜底执行失败。
// 保留 cause 链，调用方可以 errors.As 到底层驱动错误
func NewErrFallbackExecution(verb string, row int, cause error) error {
	return fmt.Errorf("ikkatsu: fallback %s aborted at row %d: %w", verb, row, cause)
}

// NewErrUnknownParam SQL 片段里出现了参数列表中不存在的占位符
func NewErrUnknownParam(name string) error {
	return fmt.Errorf("ikkatsu: no value bound for parameter @%s", name)
}

// NewErrUnsupportedOperands 内存求值的时候两侧的类型没法比较或者运算
func NewErrUnsupportedOperands(left any, right any) error {
	return fmt.Errorf("ikkatsu: unsupported operand types %T and %T", left, right)
}

// NewErrFailedToRollbackTx 事务回滚失败
// bizErr 是业务错误，rbErr 是回滚本身的错误
func NewErrFailedToRollbackTx(bizErr error, rbErr error, panicked bool) error {
	return fmt.Errorf("ikkatsu: failed to rollback the transaction, business error %w, rollback error %s, panicked %t",
		bizErr, rbErr.Error(), panicked)
}
