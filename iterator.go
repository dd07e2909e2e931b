package ikkatsu

// Iterator 是批量插入的输入序列
// 惰性消费，所以调用方可以对接文件、网络或者别的数据源，
// 不需要一次性把全部数据加载到内存里
type Iterator[T any] interface {
	// Next 准备好下一个元素，没有元素了就返回 false
	Next() bool
	// Value 返回当前元素。只有在 Next 返回 true 之后调用才有意义
	Value() *T
	// Err 返回迭代过程中遇到的错误
	Err() error
	// Close 释放底层资源。重复调用应该是安全的
	Close() error
}

// FromSlice 把切片适配成 Iterator
func FromSlice[T any](vals []*T) Iterator[T] {
	return &sliceIter[T]{vals: vals}
}

type sliceIter[T any] struct {
	vals []*T

	closed bool
	index  int
	value  *T
}

func (i *sliceIter[T]) Next() bool {
	if i.closed {
		return false
	}
	if len(i.vals) <= i.index {
		return false
	}
	i.value = i.vals[i.index]
	i.index++
	return true
}

func (i *sliceIter[T]) Value() *T {
	return i.value
}

func (i *sliceIter[T]) Err() error {
	return nil
}

func (i *sliceIter[T]) Close() error {
	i.closed = true
	return nil
}
