package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coderi421/ikkatsu"
	redis "github.com/redis/go-redis/v9"
)

// Option is a function type for configuring a MiddlewareBuilder.
type Option func(b *MiddlewareBuilder)

// MiddlewareBuilder 把每一次批量写操作追加到 Redis 里的审计队列
// 审计是旁路：写入 Redis 失败不影响操作本身的结果
type MiddlewareBuilder struct {
	client redis.Cmdable
	key    string // redis 中审计队列的 key
	maxLen int64  // 队列长度上限，0 表示不裁剪
}

func NewMiddlewareBuilder(client redis.Cmdable, opts ...Option) *MiddlewareBuilder {
	res := &MiddlewareBuilder{
		client: client,
		key:    "ikkatsu:audit",
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// WithKey 替换审计队列的 key
func WithKey(key string) Option {
	return func(b *MiddlewareBuilder) {
		b.key = key
	}
}

// WithMaxLen 限制队列长度，超过的旧记录被裁掉
func WithMaxLen(n int64) Option {
	return func(b *MiddlewareBuilder) {
		b.maxLen = n
	}
}

func (b *MiddlewareBuilder) Build() ikkatsu.Middleware {
	return func(next ikkatsu.Handler) ikkatsu.Handler {
		return func(ctx context.Context, oc *ikkatsu.OpContext) *ikkatsu.OpResult {
			res := next(ctx, oc)

			e := entry{
				Time:     time.Now().UnixMilli(),
				OpID:     oc.OpID,
				Type:     oc.Type,
				Table:    oc.Model.TableName,
				Rows:     res.Rows,
				Fallback: oc.Fallback,
			}
			if oc.Query != nil {
				e.SQL = oc.Query.SQL
			}
			if res.Err != nil {
				e.Error = res.Err.Error()
			}

			data, _ := json.Marshal(e)
			b.client.LPush(ctx, b.key, string(data))
			if b.maxLen > 0 {
				b.client.LTrim(ctx, b.key, 0, b.maxLen-1)
			}

			return res
		}
	}
}

type entry struct {
	Time     int64  `json:"time"`
	OpID     string `json:"op_id,omitempty"`
	Type     string `json:"type,omitempty"`
	Table    string `json:"table,omitempty"`
	SQL      string `json:"sql,omitempty"`
	Rows     int64  `json:"rows,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
}
