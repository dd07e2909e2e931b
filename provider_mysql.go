package ikkatsu

import (
	"database/sql/driver"

	"github.com/go-sql-driver/mysql"
)

// mysqlBatchSize MySQL 方言的默认批大小
const mysqlBatchSize = 1000

type mysqlProvider struct {
	standardSQL
}

// NewMySQLProvider 创建 MySQL 方言的 provider
// 反引号引用标识符，TRUNCATE TABLE 清空表，ON DUPLICATE KEY UPDATE 做 upsert
func NewMySQLProvider() Provider {
	return &mysqlProvider{
		standardSQL: standardSQL{
			name:        "mysql",
			quoter:      '`',
			marker:      questionMarker,
			batchSize:   mysqlBatchSize,
			useTruncate: true,
			upsert:      buildMySQLUpsert,
		},
	}
}

// CanHandle 识别 go-sql-driver/mysql 注册的驱动
func (p *mysqlProvider) CanHandle(drv driver.Driver) bool {
	_, ok := drv.(*mysql.MySQLDriver)
	return ok
}
