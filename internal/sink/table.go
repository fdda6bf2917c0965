package sink

import "github.com/JonMunkholm/AssetRecon/internal/core"

// Provenance columns appended to every published table.
const (
	ColumnSource = "_source"
	ColumnLine   = "_line"
)

// table is the storage layout of one dataset category.
type table struct {
	name    string
	ds      core.Dataset
	fields  []string
	types   []core.ColumnType // parallel to fields
	reasons bool
}

// newTable lays out ds as prefix_category. Only the valid category gets
// typed columns; merged and invalid rows may hold anything.
func newTable(prefix string, ds core.Dataset, columnTypes map[string]core.ColumnType) table {
	t := table{
		name:    TableName(prefix, ds.Name),
		ds:      ds,
		fields:  ds.Schema.Fields(),
		reasons: ds.Reasons != nil,
	}
	t.types = make([]core.ColumnType, len(t.fields))
	for i, f := range t.fields {
		t.types[i] = core.ColumnText
		if ds.Name == core.CategoryValid {
			if ct, ok := columnTypes[f]; ok {
				t.types[i] = ct
			}
		}
	}
	return t
}

// TableName is the table a category is published to.
func TableName(prefix, category string) string {
	if prefix == "" {
		return category
	}
	return prefix + "_" + category
}

// columns returns every column name in insert order.
func (t table) columns() []string {
	cols := make([]string, 0, len(t.fields)+3)
	cols = append(cols, t.fields...)
	if t.reasons {
		cols = append(cols, core.ReasonsColumn)
	}
	return append(cols, ColumnSource, ColumnLine)
}

// row returns record i in column order. convert maps each field value to
// its stored form; nil stores the raw string.
func (t table) row(i int, convert func(core.ColumnType, string) any) []any {
	r := t.ds.Records[i]
	out := make([]any, 0, len(t.fields)+3)
	for j, ct := range t.types {
		v := ""
		if j < len(r.Values) {
			v = r.Values[j]
		}
		if convert != nil {
			out = append(out, convert(ct, v))
		} else {
			out = append(out, v)
		}
	}
	if t.reasons {
		out = append(out, core.JoinReasons(t.ds.Reasons[i]))
	}
	return append(out, r.Source, int64(r.Line))
}

// len is the number of rows.
func (t table) len() int {
	return len(t.ds.Records)
}
