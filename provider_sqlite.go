package ikkatsu

import (
	"database/sql/driver"

	"github.com/mattn/go-sqlite3"
	msqlite "modernc.org/sqlite"
)

const (
	// sqliteBatchSize SQLite 方言的默认批大小
	sqliteBatchSize = 500
	// sqliteMaxBindVars 默认编译参数下 SQLite 单条语句的绑定变量上限
	sqliteMaxBindVars = 999
)

type sqliteProvider struct {
	standardSQL
}

// NewSQLiteProvider 创建 SQLite 方言的 provider
// SQLite 没有 TRUNCATE，清空表退化成不带 WHERE 的 DELETE；
// 批大小还会按绑定变量上限再压缩，保证一条语句塞得下
func NewSQLiteProvider() Provider {
	return &sqliteProvider{
		standardSQL: standardSQL{
			name:        "sqlite",
			quoter:      '`',
			marker:      questionMarker,
			batchSize:   sqliteBatchSize,
			maxBindVars: sqliteMaxBindVars,
			useTruncate: false,
			upsert:      buildConflictUpsert,
		},
	}
}

// CanHandle 同时认 mattn/go-sqlite3 和 modernc.org/sqlite 两种驱动
func (p *sqliteProvider) CanHandle(drv driver.Driver) bool {
	switch drv.(type) {
	case *sqlite3.SQLiteDriver:
		return true
	case *msqlite.Driver:
		return true
	default:
		return false
	}
}
