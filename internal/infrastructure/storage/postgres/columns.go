package postgres

import (
	"reflect"
	"sync"
)

// columnIndex maps a db column to the field index path inside its struct.
type columnIndex struct {
	names []string
	paths map[string][]int
}

var columnCache sync.Map // reflect.Type -> *columnIndex

// Columns lists the columns of T from its "db" tags, in field order.
// Embedded structs are flattened; fields tagged "-" or untagged are skipped.
//
//	var cashDocumentColumns = postgres.Columns[entity.CashDocument]()
func Columns[T any]() []string {
	idx := indexOf(reflect.TypeFor[T]())
	return append([]string(nil), idx.names...)
}

// Values returns the fields of v (a struct or pointer to one) keyed by column,
// limited to cols. Columns v does not have are skipped.
func Values(v any, cols ...string) map[string]any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	idx := indexOf(rv.Type())
	out := make(map[string]any, len(cols))
	for _, col := range cols {
		if path, ok := idx.paths[col]; ok {
			out[col] = rv.FieldByIndex(path).Interface()
		}
	}
	return out
}

func indexOf(t reflect.Type) *columnIndex {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.(*columnIndex)
	}

	idx := &columnIndex{paths: make(map[string][]int)}
	if t.Kind() == reflect.Struct {
		collectColumns(t, nil, idx)
	}
	actual, _ := columnCache.LoadOrStore(t, idx)
	return actual.(*columnIndex)
}

func collectColumns(t reflect.Type, prefix []int, idx *columnIndex) {
	for i := range t.NumField() {
		field := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectColumns(field.Type, path, idx)
			continue
		}

		tag := field.Tag.Get("db")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		if _, dup := idx.paths[tag]; dup {
			continue
		}
		idx.names = append(idx.names, tag)
		idx.paths[tag] = path
	}
}
