package ikkatsu

import (
	"context"
	"database/sql"
	"database/sql/driver"
)

var _ Session = &Tx{}
var _ Session = &DB{}

// Session 代表一个抽象的会话，DB 和 Tx 都实现了它
// QueryContext 和 ExecContext 是导出的，自定义 Provider 要靠它们执行语句；
// 引擎自己只是借用调用方的会话，不做连接池、不重试、不重连
type Session interface {
	getCore() core
	driver() driver.Driver
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Tx struct {
	tx *sql.Tx
	db *DB
}

func (t *Tx) getCore() core {
	return t.db.core
}

func (t *Tx) driver() driver.Driver {
	return t.db.driver()
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

func (t *Tx) RollbackIfNotCommit() error {
	err := t.tx.Rollback()
	if err != sql.ErrTxDone {
		return err
	}
	return nil
}
