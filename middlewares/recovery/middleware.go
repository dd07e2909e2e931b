package recovery

import (
	"context"
	"fmt"

	"github.com/coderi421/ikkatsu"
)

type MiddlewareBuilder struct {
	logFunc func(oc *ikkatsu.OpContext, err any)
}

// LogFunc 设置 panic 时的记录函数
func (m *MiddlewareBuilder) LogFunc(fn func(oc *ikkatsu.OpContext, err any)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

// Build 把链路下游的 panic 转成普通的错误返回
func (m *MiddlewareBuilder) Build() ikkatsu.Middleware {
	return func(next ikkatsu.Handler) ikkatsu.Handler {
		return func(ctx context.Context, oc *ikkatsu.OpContext) (res *ikkatsu.OpResult) {
			defer func() {
				if err := recover(); err != nil {
					res = &ikkatsu.OpResult{
						Err: fmt.Errorf("ikkatsu: panic during %s: %v", oc.Type, err),
					}
					// 万一 logFunc 也 panic，那我们也无能为力了
					if m.logFunc != nil {
						m.logFunc(oc, err)
					}
				}
			}()
			return next(ctx, oc)
		}
	}
}
