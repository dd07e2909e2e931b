package ikkatsu

// For 打开一个针对 T 的批量操作
// 返回值只服务一条调用链：不要跨 goroutine 共享，也不要复用，
// 需要并行就各自 For 一个
func For[T any](sess Session) *BatchOperation[T] {
	c := sess.getCore()
	return &BatchOperation[T]{
		core: c,
		sess: sess,
	}
}

// BatchOperation 一次批量操作的全部状态
type BatchOperation[T any] struct {
	core
	sess Session

	columns   []string // 插入哪些字段，空表示全部映射字段
	batchSize int
	upsert    *Upsert
}

// Columns 指定插入哪些字段
func (b *BatchOperation[T]) Columns(cols ...string) *BatchOperation[T] {
	b.columns = cols
	return b
}

// BatchSize 指定一批最多多少行
// 不指定时用选中 provider 的方言默认值
func (b *BatchOperation[T]) BatchSize(size int) *BatchOperation[T] {
	b.batchSize = size
	return b
}

// Where 附加过滤条件，进入 Update 和 Delete 的入口
// 至少要有一个谓词，整表操作请用 TruncateTable
func (b *BatchOperation[T]) Where(ps ...Predicate) *FilteredBatchOperation[T] {
	return &FilteredBatchOperation[T]{
		op:    b,
		where: ps,
	}
}

// FilteredBatchOperation 带谓词的批量操作
type FilteredBatchOperation[T any] struct {
	op    *BatchOperation[T]
	where []Predicate
}
