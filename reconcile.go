package ikkatsu

import (
	"regexp"
	"strconv"
)

// reconcileParams 把一个 SET 来源片段的参数并入已占用的名字集合。
// 撞名的参数改名为 old_k，k 来自本次调用内单调递增的计数器，
// 直到和整个合并集都不冲突为止，之后把片段文本里的 @old 改写成 @new。
// 对没有冲突的参数这是一个纯粹的 no-op，所以重复执行结果不变。
// 计数器只增不减，改名循环一定会终止
func reconcileParams(taken map[string]struct{}, m *QueryInfo) *QueryInfo {
	res := &QueryInfo{
		SQL:    m.SQL,
		Params: make([]Param, 0, len(m.Params)),
	}

	counter := 0
	for _, p := range m.Params {
		name := p.Name
		if _, clash := taken[name]; clash {
			for {
				counter++
				candidate := p.Name + "_" + strconv.Itoa(counter)
				if _, used := taken[candidate]; used {
					continue
				}
				// 同一个片段里还没处理到的参数也算进冲突集
				if m.hasParam(candidate) {
					continue
				}
				name = candidate
				break
			}
			res.SQL = rewriteParam(res.SQL, p.Name, name)
		}
		taken[name] = struct{}{}
		res.Params = append(res.Params, Param{Name: name, Value: p.Value})
	}
	return res
}

// rewriteParam 把片段里的 @old 全部改写成 @new
// \b 保证 @p1 不会误伤 @p10 这种前缀相同的占位符
func rewriteParam(sql string, oldName string, newName string) string {
	re := regexp.MustCompile(`@` + regexp.QuoteMeta(oldName) + `\b`)
	return re.ReplaceAllString(sql, "@"+newName)
}
