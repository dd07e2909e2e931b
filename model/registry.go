package model

import (
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/coderi421/ikkatsu/internal/errs"
	lru "github.com/hashicorp/golang-lru"
)

// defaultCacheSize 常规应用的实体类型数量远小于这个值，
// 超过上限时 LRU 淘汰，之后的 Get 会重新解析，语义不变
const defaultCacheSize = 256

type Registry interface {
	// Get 查找元数据模型，缓存优先
	Get(val any) (*Model, error)
	// Register 解析并缓存，opts 会被记住，Refresh 的时候重放
	Register(val any, opts ...Option) (*Model, error)
	// Refresh 绕过缓存强制重新解析一次，覆盖旧的缓存项。
	// 引擎在缓存解析失败之后，恰好调用一次，不做无限重试
	Refresh(val any) (*Model, error)
}

// 这种包变量对测试不友好，缺乏隔离
//
//	var defaultRegistry = &registry{}
type registry struct {
	// models 用 LRU 限制上限，key 是 reflect.Type
	// reflect.Type 可以解决命名冲突的问题：
	// 两个包里的 User 是不同的 Type
	models *lru.Cache

	// opts 记录 Register 时用的选项，Refresh 重放用。
	// 写少读少，普通锁就够了
	mutex sync.RWMutex
	opts  map[reflect.Type][]Option
}

func NewRegistry() Registry {
	// size > 0 时 lru.New 不会失败
	c, _ := lru.New(defaultCacheSize)
	return &registry{
		models: c,
		opts:   map[reflect.Type][]Option{},
	}
}

// NewSizedRegistry creates a Registry with a custom cache size limit.
func NewSizedRegistry(size int) (Registry, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &registry{
		models: c,
		opts:   map[reflect.Type][]Option{},
	}, nil
}

// Get fetches the model associated with a given value.
// If the model is not found in the cache, it is parsed and stored for future use.
func (r *registry) Get(val any) (*Model, error) {
	typ := reflect.TypeOf(val)

	m, ok := r.models.Get(typ)
	if ok {
		return m.(*Model), nil
	}

	return r.Register(val)
}

// Register registers a model in the registry with the given options.
// It parses the model, applies the provided options, and stores the result.
func (r *registry) Register(val any, opts ...Option) (*Model, error) {
	m, err := r.parseModel(val)
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		err = opt(m)
		if err != nil {
			return nil, err
		}
	}

	typ := reflect.TypeOf(val)

	r.mutex.Lock()
	r.opts[typ] = opts
	r.mutex.Unlock()

	r.models.Add(typ, m)

	return m, nil
}

// Refresh re-parses the model from its authoritative source (the struct
// tags plus the options recorded at Register time) and overwrites the
// cached entry.
func (r *registry) Refresh(val any) (*Model, error) {
	typ := reflect.TypeOf(val)

	r.mutex.RLock()
	opts := r.opts[typ]
	r.mutex.RUnlock()

	return r.Register(val, opts...)
}

// parseModel parses a given value and returns a new model or an error.
// It checks if the type is a pointer to a struct and generates the field
// metadata for the model.
// orm:"column=item_id" 自定义列名
// orm:"pk"             主键标记
// orm:"-"              跳过这个字段
func (r *registry) parseModel(val any) (*Model, error) {
	typ := reflect.TypeOf(val)

	// Check if the type is a pointer to a struct
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		// Only support one-level pointer as input, e.g. *User does not support **User and User
		return nil, errs.ErrPointerOnly
	}

	// Dereference the pointer to get the struct type
	typ = typ.Elem()

	numField := typ.NumField()

	fields := make([]*Field, 0, numField)
	fds := make(map[string]*Field, numField)
	colMap := make(map[string]*Field, numField)

	var pk *Field

	for i := 0; i < numField; i++ {
		fdStruct := typ.Field(i)

		tags, err := r.parseTag(fdStruct.Tag)
		if err != nil {
			return nil, err
		}

		// orm:"-" 的字段只存在于内存里，不参与任何 SQL
		if _, ok := tags[tagKeyIgnore]; ok {
			continue
		}

		// Get the column name from the tag or use the default Field name
		colName := tags[tagKeyColumn]
		if colName == "" {
			// If the colName is "", use the default  ItemId -> item_id
			colName = underscoreName(fdStruct.Name)
		}

		_, isPK := tags[tagKeyPK]

		f := &Field{
			ColName:   colName,
			GoName:    fdStruct.Name,
			Type:      fdStruct.Type,
			Offset:    fdStruct.Offset,
			Index:     i,
			IsPrimary: isPK,
		}
		fields = append(fields, f)
		// Store the Struct Field's column name in the map
		fds[fdStruct.Name] = f
		// Store the DB's column name in the map
		colMap[colName] = f

		if isPK && pk == nil {
			pk = f
		}
	}

	// 没有显式标记主键时，退回到 Id/ID 的命名约定
	if pk == nil {
		for _, f := range fields {
			if f.GoName == "Id" || f.GoName == "ID" {
				f.IsPrimary = true
				pk = f
				break
			}
		}
	}

	// Get the table name from the input value if it implements TableName interface
	var tableName string
	if tn, ok := val.(TableName); ok {
		tableName = tn.TableName()
	}
	// If the table name is not provided, generate it from the struct name
	if tableName == "" {
		tableName = underscoreName(typ.Name())
	}

	var schemaName string
	if ts, ok := val.(TableSchema); ok {
		schemaName = ts.TableSchema()
	}

	return &Model{
		SchemaName: schemaName,
		TableName:  tableName,
		Fields:     fields,
		FieldMap:   fds,
		ColumnMap:  colMap,
		PrimaryKey: pk,
	}, nil
}

// parseTag parses the given struct tag and returns a map of key-value pairs.
// If the tag is empty, it returns an empty map and no error.
// 支持两种形态：key=value 和单独的 flag（比如 pk）
func (r *registry) parseTag(tag reflect.StructTag) (map[string]string, error) {
	ormTag := tag.Get(tagORMName)
	if ormTag == "" {
		// Return an empty map so that the caller doesn't need to check for nil
		return map[string]string{}, nil
	}

	res := make(map[string]string, 2)

	pairs := strings.Split(ormTag, ",")
	for _, pair := range pairs {
		if pair == "" {
			return nil, errs.NewErrInvalidTagContent(pair)
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 1 {
			// flag 形态，比如 pk 和 -
			res[kv[0]] = ""
			continue
		}
		res[kv[0]] = kv[1]
	}

	return res, nil
}

// underscoreName converts a given table name to underscore case.
// It replaces any uppercase letter with an underscore followed by the lowercase letter.
// UserName -> user_name
func underscoreName(tableName string) string {
	var buf []byte
	for i, v := range tableName {
		if unicode.IsUpper(v) {
			if i != 0 {
				buf = append(buf, '_')
			}
			buf = append(buf, byte(unicode.ToLower(v)))
		} else {
			buf = append(buf, byte(v))
		}
	}
	return string(buf)
}

// WithTableName is an Option function that sets the table name for a Model.
func WithTableName(tableName string) Option {
	return func(model *Model) error {
		model.TableName = tableName
		return nil
	}
}

// WithSchemaName is an Option function that sets the schema name for a Model.
func WithSchemaName(schemaName string) Option {
	return func(model *Model) error {
		model.SchemaName = schemaName
		return nil
	}
}

// WithColumnName returns an Option function, which can be used to set the column name for a specific Field in a model.
func WithColumnName(field, columnName string) Option {
	return func(model *Model) error {
		fd, ok := model.FieldMap[field]
		if !ok {
			return errs.NewErrUnknownField(field)
		}

		// ColumnMap 的 key 也要跟着换，不然旧列名还能查到
		delete(model.ColumnMap, fd.ColName)
		fd.ColName = columnName
		model.ColumnMap[columnName] = fd
		return nil
	}
}

// WithPrimaryKey marks a Field as the primary key, overriding the tag
// and naming conventions.
func WithPrimaryKey(field string) Option {
	return func(model *Model) error {
		fd, ok := model.FieldMap[field]
		if !ok {
			return errs.NewErrUnknownField(field)
		}
		if model.PrimaryKey != nil {
			model.PrimaryKey.IsPrimary = false
		}
		fd.IsPrimary = true
		model.PrimaryKey = fd
		return nil
	}
}
