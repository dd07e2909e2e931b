package valuer

import (
	"database/sql"
	"reflect"

	"github.com/coderi421/ikkatsu/internal/errs"
	"github.com/coderi421/ikkatsu/model"
)

// reflectValue 基于反射的 Value
type reflectValue struct {
	val  reflect.Value
	meta *model.Model
}

var _ Creator = NewReflectValue

// NewReflectValue 返回一个封装好的，基于反射实现的 Value
// 输入 val 必须是一个指向结构体实例的指针，而不能是任何其它类型
func NewReflectValue(val any, meta *model.Model) Value {
	return reflectValue{
		val:  reflect.ValueOf(val).Elem(),
		meta: meta,
	}
}

// Field 按属性名读取字段值，批量 INSERT 的时候逐列调用
func (r reflectValue) Field(name string) (any, error) {
	fd, ok := r.meta.FieldMap[name]
	if !ok {
		return nil, errs.NewErrUnknownField(name)
	}
	return r.val.Field(fd.Index).Interface(), nil
}

// SetColumns sets the values from the database to the corresponding struct.
func (r reflectValue) SetColumns(rows *sql.Rows) error {
	columnNames, err := rows.Columns()
	if err != nil {
		return err
	}

	if len(columnNames) > len(r.meta.ColumnMap) {
		return errs.ErrTooManyReturnedColumns
	}

	// colValues 和 colEleValues 实质上最终都指向同一个对象
	colValues := make([]any, len(columnNames))
	colEleValues := make([]reflect.Value, len(columnNames))

	for i, name := range columnNames {
		field, ok := r.meta.ColumnMap[name]
		if !ok {
			return errs.NewErrUnknownColumn(name)
		}

		// 构建出新的 reflect.Value，Scan 需要指针
		value := reflect.New(field.Type)

		// colValues 存指针给 Scan 用，colEleValues 存解引用之后的值，
		// 两者指向同一块内存，Scan 之后 colEleValues 里就是新值
		colValues[i] = value.Interface()
		colEleValues[i] = value.Elem()
	}

	// 这里使用 colValues 而不是 colEleValues 是因为 Scan 方法接收的是 []any 参数 而不是 []reflect.Value
	if err = rows.Scan(colValues...); err != nil {
		return err
	}

	// 最终通过映射信息找到结构体中的字段，把扫描结果赋值进去
	for i, c := range columnNames {
		cm := r.meta.ColumnMap[c]
		fd := r.val.Field(cm.Index)
		fd.Set(colEleValues[i])
	}
	return nil
}
