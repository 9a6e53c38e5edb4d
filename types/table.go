package types

// ColumnType is the scalar type domain supported by the storage engine.
// There is no NULL domain value; columns always carry a value of their
// declared width.
type ColumnType string

const (
	ColInt    ColumnType = "INT"
	ColFloat  ColumnType = "FLOAT"
	ColString ColumnType = "STRING"
)

// ColumnDef describes one fixed-width field of a table. Offset is the byte
// offset of this column within a record and is assigned by AssignOffsets
// when the table is created; it never changes afterwards.
type ColumnDef struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	Len          int        `json:"len"`
	Offset       int        `json:"offset"`
	IsPrimaryKey bool       `json:"is_primary_key,omitempty"`
}

// ForeignKeyDef is carried over from the teacher's catalog for DDL
// round-tripping; the executors in this core do not enforce it.
type ForeignKeyDef struct {
	Column    string `json:"column"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// IndexDef names an ordered, multicolumn secondary (here: clustered) index
// over a table. ColTotLen is the sum of the widths of Columns, i.e. the
// fixed width of a concatenated index key.
type IndexDef struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	ColTotLen int      `json:"col_tot_len"`
}

// TableSchema is the catalog's in-memory and on-disk description of a
// table: its ordered columns (which fix the record layout) and the set of
// indexes built over it.
type TableSchema struct {
	TableName   string          `json:"table_name"`
	Columns     []ColumnDef     `json:"columns"`
	Indexes     []IndexDef      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKeyDef `json:"foreign_keys,omitempty"`
}

// RecordSize is the fixed width of a record of this table: the sum of every
// column's declared length.
func (s *TableSchema) RecordSize() int {
	size := 0
	for _, c := range s.Columns {
		size += c.Len
	}
	return size
}

// AssignOffsets packs columns back-to-back in declaration order and fixes
// each column's Offset. Called once, at CREATE TABLE time; offsets are then
// immutable for the life of the table per the data model.
func (s *TableSchema) AssignOffsets() {
	offset := 0
	for i := range s.Columns {
		s.Columns[i].Offset = offset
		offset += s.Columns[i].Len
	}
}

// Column looks up a column by name.
func (s *TableSchema) Column(name string) (ColumnDef, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Index looks up an index by name.
func (s *TableSchema) Index(name string) (IndexDef, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return IndexDef{}, false
}

// IndexesOn returns every index that covers at least one of the given
// column names — used by Update to decide which indexes must be
// re-keyed when a SET clause touches one of their columns.
func (s *TableSchema) IndexesOn(columns map[string]bool) []IndexDef {
	var out []IndexDef
	for _, idx := range s.Indexes {
		for _, c := range idx.Columns {
			if columns[c] {
				out = append(out, idx)
				break
			}
		}
	}
	return out
}

// BuildIndexName joins the column names, each followed by an underscore:
// <col1>_<col2>_..._ (the trailing underscore is the teacher's convention,
// kept for continuity). It adds no table prefix and no file extension.
func BuildIndexName(cols []string) string {
	name := ""
	for _, c := range cols {
		name += c + "_"
	}
	return name
}

// BuildIndexKey concatenates the declared-width encoding of idx's columns,
// read out of record, in index-column order — the exact layout a B+ tree
// comparator expects (bytes.Compare over the concatenation). Both the DML
// executors and the catalog's create_index backfill build keys this way, so
// a key computed while a table already had rows compares equal to one
// computed for a row inserted afterwards.
func BuildIndexKey(record []byte, schema []ColumnDef, idx IndexDef) ([]byte, error) {
	key := make([]byte, idx.ColTotLen)
	offset := 0
	for _, colName := range idx.Columns {
		var col ColumnDef
		found := false
		for _, c := range schema {
			if c.Name == colName {
				col = c
				found = true
				break
			}
		}
		if !found {
			return nil, ErrColumnNotFound
		}
		val, err := DecodeValue(record, col)
		if err != nil {
			return nil, err
		}
		if err := val.EncodeInto(key[offset:offset+col.Len], col); err != nil {
			return nil, err
		}
		offset += col.Len
	}
	return key, nil
}
