package ikkatsu

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// postgresBatchSize Postgres 方言的默认批大小
const postgresBatchSize = 1000

type postgresProvider struct {
	standardSQL
}

// NewPostgresProvider 创建 Postgres 方言的 provider
// 双引号引用标识符，占位符是 $1 $2 这种位置形式，
// upsert 用 ON CONFLICT ... DO UPDATE SET
func NewPostgresProvider() Provider {
	return &postgresProvider{
		standardSQL: standardSQL{
			name:        "postgres",
			quoter:      '"',
			marker:      dollarMarker,
			batchSize:   postgresBatchSize,
			useTruncate: true,
			upsert:      buildConflictUpsert,
		},
	}
}

// CanHandle 识别 lib/pq 注册的驱动
func (p *postgresProvider) CanHandle(drv driver.Driver) bool {
	switch drv.(type) {
	case *pq.Driver, pq.Driver:
		return true
	default:
		return false
	}
}
