package ikkatsu

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/internal/valuer"
	"github.com/coderi421/ikkatsu/model"
	cache "github.com/patrickmn/go-cache"
)

// diagDedupWindow 诊断日志的去重窗口
// 同一种 driver+动词 的降级提示在窗口期内只输出一次，避免批量调用刷屏
const diagDedupWindow = time.Minute

type core struct {
	r          model.Registry // 存储数据库表和 struct 映射关系的实例
	valCreator valuer.Creator // 与DB交互映射的实现
	providers  []Provider     // 按注册顺序排列，选中先注册的
	fallback   bool           // 没有 provider 能处理时是否允许逐行兜底
	logFunc    func(msg string)
	diags      *cache.Cache // 诊断日志去重
	mdls       []Middleware
}

// selectProvider 按注册顺序返回第一个认识这个 driver 的 provider
// 纯选择，没有副作用；多个都匹配时先注册的胜出
func (c core) selectProvider(drv driver.Driver) Provider {
	for _, p := range c.providers {
		if p.CanHandle(drv) {
			return p
		}
	}
	return nil
}

// resolveModel 缓存优先解析映射，失败后强制刷新一次，仍失败才放弃
func (c core) resolveModel(val any) (*model.Model, error) {
	m, err := c.r.Get(val)
	if err == nil {
		return m, nil
	}
	m, err = c.r.Refresh(val)
	if err != nil {
		return nil, errs.NewErrMappingNotFound(fmt.Sprintf("%T", val), err)
	}
	return m, nil
}

// logProviderMiss 记录一次 provider 未命中或者能力不足的降级
func (c core) logProviderMiss(verb string, drv driver.Driver, p Provider) {
	key := fmt.Sprintf("%T/%s", drv, verb)
	if p == nil {
		c.logDiagnostic(key, fmt.Sprintf(
			"ikkatsu: no provider can handle driver %T, %s falls back to the row-by-row path", drv, verb))
		return
	}
	c.logDiagnostic(key, fmt.Sprintf(
		"ikkatsu: provider %s cannot %s, falling back to the row-by-row path", p.Name(), verb))
}

// logDiagnostic 输出一条诊断日志，窗口期内相同 key 的只输出一次
func (c core) logDiagnostic(key string, msg string) {
	if c.diags != nil {
		if _, hit := c.diags.Get(key); hit {
			return
		}
		c.diags.Set(key, struct{}{}, cache.DefaultExpiration)
	}
	if c.logFunc != nil {
		c.logFunc(msg)
	}
}

// execHandler 是中间件链最底端的执行器，跑 OpContext 里的最终语句
func execHandler(sess Session) Handler {
	return func(ctx context.Context, oc *OpContext) *OpResult {
		res, err := sess.ExecContext(ctx, oc.Query.SQL, oc.Query.Args...)
		if err != nil {
			return &OpResult{Err: err}
		}
		n, err := res.RowsAffected()
		return &OpResult{Rows: n, Err: err}
	}
}
