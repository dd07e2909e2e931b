package ikkatsu

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"log"
	"time"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/internal/valuer"
	"github.com/coderi421/ikkatsu/model"
	cache "github.com/patrickmn/go-cache"
)

type DBOption func(*DB)

// DB 是对 sql.DB 的简单封装，持有引擎的全部配置
// 配置在 Open 的时候写入，之后只读，可以被并发使用
type DB struct {
	core
	db *sql.DB
}

// Open 创建一个 DB 实例
// 默认注册 MySQL、SQLite、Postgres 三个 provider，默认允许逐行兜底
func Open(driver string, dsn string, opts ...DBOption) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return OpenDB(db, opts...)
}

// OpenDB 使用已有的 sql.DB 创建实例
// 单元测试里可以把 sqlmock 传进来
func OpenDB(db *sql.DB, opts ...DBOption) (*DB, error) {
	res := &DB{
		core: core{
			r:          model.NewRegistry(),
			valCreator: valuer.NewUnsafeValue,
			providers:  defaultProviders(),
			fallback:   true,
			logFunc: func(msg string) {
				log.Println(msg)
			},
			diags: cache.New(diagDedupWindow, diagDedupWindow),
		},
		db: db,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res, nil
}

// DBWithProviders 替换整个 provider 列表，顺序即选择顺序
func DBWithProviders(ps ...Provider) DBOption {
	return func(db *DB) {
		db.providers = ps
	}
}

// DBWithExtraProviders 在默认列表前面插入自定义 provider
// 插到前面，所以自定义的会被优先选中
func DBWithExtraProviders(ps ...Provider) DBOption {
	return func(db *DB) {
		db.providers = append(ps, db.providers...)
	}
}

func DBWithRegistry(r model.Registry) DBOption {
	return func(db *DB) {
		db.r = r
	}
}

func DBWithMiddlewares(ms ...Middleware) DBOption {
	return func(db *DB) {
		db.mdls = ms
	}
}

// DBWithLogFunc 替换诊断日志的输出函数
func DBWithLogFunc(fn func(msg string)) DBOption {
	return func(db *DB) {
		db.logFunc = fn
	}
}

// DBWithoutFallback 禁用逐行兜底
// 禁用之后，没有 provider 能处理的操作会直接失败
func DBWithoutFallback() DBOption {
	return func(db *DB) {
		db.fallback = false
	}
}

func DBUseReflectValuer() DBOption {
	return func(db *DB) {
		db.valCreator = valuer.NewReflectValue
	}
}

func DBUseUnsafeValuer() DBOption {
	return func(db *DB) {
		db.valCreator = valuer.NewUnsafeValue
	}
}

func (db *DB) getCore() core {
	return db.core
}

func (db *DB) driver() driver.Driver {
	return db.db.Driver()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx 开启事务
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// DoTx 帮助用户管理事务的闭包 API
// fn 返回错误或者 panic 都会回滚，否则提交
func (db *DB) DoTx(ctx context.Context,
	fn func(ctx context.Context, tx *Tx) error,
	opts *sql.TxOptions) (err error) {
	var tx *Tx
	tx, err = db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	panicked := true
	defer func() {
		if panicked || err != nil {
			e := tx.Rollback()
			if e != nil {
				err = errs.NewErrFailedToRollbackTx(err, e, panicked)
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(ctx, tx)
	panicked = false
	return err
}

// Wait 阻塞到数据库可用为止
// 容器化的集成测试里用来等数据库启动
func (db *DB) Wait() error {
	err := db.db.Ping()
	for err == driver.ErrBadConn {
		db.logFunc("ikkatsu: waiting for the database to come up")
		err = db.db.Ping()
		time.Sleep(time.Second)
	}
	return err
}

func (db *DB) Close() error {
	return db.db.Close()
}
