package ikkatsu

import (
	"context"

	"github.com/coderi421/ikkatsu/model"
)

// 操作类型，即 INSERT, UPDATE, DELETE 和 TRUNCATE
const (
	OpTypeInsert   = "INSERT"
	OpTypeUpdate   = "UPDATE"
	OpTypeDelete   = "DELETE"
	OpTypeTruncate = "TRUNCATE"
)

// OpContext 中间件的上下文，冗余了 Model 和最终的 Query，
// 是因为有的中间件在执行 SQL 前就需要这些信息
type OpContext struct {
	// Type 声明操作类型
	Type string

	// Query 是即将执行的语句
	// 批量 INSERT 按批生成语句，拿不到单独的一条，所以是 nil
	Query *Query

	// Model 为了有的中间件在拦截时需要表信息
	Model *model.Model

	// OpID 一次操作的唯一标识，方便在日志里串联同一次调用
	OpID string

	// Fallback 标记本次操作走的是逐行兜底路径
	Fallback bool
}

type OpResult struct {
	// Rows 受影响的行数
	Rows int64
	Err  error
}

type Middleware func(next Handler) Handler

type Handler func(ctx context.Context, oc *OpContext) *OpResult
