package types

import "fmt"

// RowPointer is the physical address of a heap record: (file, page, slot).
// It is stable for the record's lifetime and never reused while the record
// exists. The spec's Rid is this same triple minus the file, since a Rid is
// always scoped to one heap file.
type RowPointer struct {
	FileID     uint32 `json:"file_id"`
	PageNumber uint32 `json:"page_number"`
	SlotIndex  uint16 `json:"slot_index"`
}

func (r RowPointer) String() string {
	return fmt.Sprintf("(%d,%d,%d)", r.FileID, r.PageNumber, r.SlotIndex)
}

// Rid is the heap-relative form of RowPointer used once a record's file is
// implied by context (e.g. inside a single table's executors or undo log).
type Rid struct {
	PageNo  uint32 `json:"page_no"`
	SlotNo  uint16 `json:"slot_no"`
}

func (r Rid) String() string {
	return fmt.Sprintf("(%d,%d)", r.PageNo, r.SlotNo)
}

func RidFromPointer(rp RowPointer) Rid {
	return Rid{PageNo: rp.PageNumber, SlotNo: rp.SlotIndex}
}

func (r Rid) WithFile(fileID uint32) RowPointer {
	return RowPointer{FileID: fileID, PageNumber: r.PageNo, SlotIndex: r.SlotNo}
}

// Row is a loosely-typed, column-name-keyed view of a record. Executors
// decode the fixed-width on-disk bytes into a Row to evaluate conditions and
// re-encode a Row into bytes to write it back.
type Row struct {
	Values map[string]interface{}
}

// RowWithPointer pairs a decoded row with its physical location, which is
// what SeqScan yields to its parent operator.
type RowWithPointer struct {
	Pointer RowPointer
	Row     Row
}

func (r *Row) Set(column string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	r.Values[column] = value
}

func (r *Row) Get(column string) (interface{}, bool) {
	v, ok := r.Values[column]
	return v, ok
}

func (r *Row) ToMap() map[string]interface{} {
	return r.Values
}

func (r Row) Clone() Row {
	newMap := make(map[string]interface{}, len(r.Values))
	for k, v := range r.Values {
		newMap[k] = v
	}
	return Row{Values: newMap}
}
