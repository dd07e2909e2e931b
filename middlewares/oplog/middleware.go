package oplog

import (
	"context"
	"encoding/json"
	"log"

	"github.com/coderi421/ikkatsu"
)

type MiddlewareBuilder struct {
	logFunc func(log string)
}

func NewBuilder() *MiddlewareBuilder {
	return &MiddlewareBuilder{
		logFunc: func(l string) {
			log.Println(l)
		},
	}
}

// LogFunc 这里如果需要配置的参数比较多，可以使用 函数选项模式
func (m *MiddlewareBuilder) LogFunc(fn func(log string)) *MiddlewareBuilder {
	m.logFunc = fn
	return m
}

func (m *MiddlewareBuilder) Build() ikkatsu.Middleware {
	return func(next ikkatsu.Handler) ikkatsu.Handler {
		return func(ctx context.Context, oc *ikkatsu.OpContext) *ikkatsu.OpResult {
			res := next(ctx, oc)

			l := opLog{
				OpID:     oc.OpID,
				Type:     oc.Type,
				Table:    oc.Model.TableName,
				Rows:     res.Rows,
				Fallback: oc.Fallback,
			}
			// 批量 INSERT 逐批生成语句，上下文里没有单独的一条
			if oc.Query != nil {
				l.SQL = oc.Query.SQL
			}
			if res.Err != nil {
				l.Error = res.Err.Error()
			}

			data, _ := json.Marshal(l)
			m.logFunc(string(data))

			return res
		}
	}
}

type opLog struct {
	OpID     string `json:"op_id,omitempty"`
	Type     string `json:"type,omitempty"`
	Table    string `json:"table,omitempty"`
	SQL      string `json:"sql,omitempty"`
	Rows     int64  `json:"rows,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}
