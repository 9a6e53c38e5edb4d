package exec

import (
	"DaemonDB/types"
	"errors"
	"testing"
)

func TestInsertThenSeqScanRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.createTable(intStringSchema("users", 8, "id_idx"))

	_, ctx := h.begin()

	ins, err := NewInsert(ctx, "users", []types.Value{types.IntValue(1), types.StrValue([]byte("alice"))})
	if err != nil {
		t.Fatalf("NewInsert: %v", err)
	}
	if err := ins.BeginTuple(); err != nil {
		t.Fatalf("Insert.BeginTuple: %v", err)
	}
	if ins.IsEnd() {
		t.Fatalf("Insert should yield its one row before NextTuple")
	}

	scan, err := NewSeqScan(ctx, "users", nil)
	if err != nil {
		t.Fatalf("NewSeqScan: %v", err)
	}
	rows, err := drain(scan)
	if err != nil {
		t.Fatalf("drain scan: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row, got %d", len(rows))
	}

	cols := scan.Cols()
	idCol, _ := findCol(cols, "id")
	nameCol, _ := findCol(cols, "name")
	gotID, _ := types.DecodeValue(rows[0], idCol)
	if gotID.Int != 1 {
		t.Fatalf("want id=1, got %d", gotID.Int)
	}
	gotName, _ := types.DecodeValue(rows[0], nameCol)
	if string(gotName.Str) != string(padStr("alice", 8)) {
		t.Fatalf("want name=%q, got %q", padStr("alice", 8), gotName.Str)
	}

	key := make([]byte, 4)
	types.IntValue(1).EncodeInto(key, idCol)
	if _, err := h.index.LookupEntry("users", "id_idx", key); err != nil {
		t.Fatalf("LookupEntry after insert: %v", err)
	}

	if err := h.txnMgr.Commit(ctx.Txn.ID); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// TestInsertNextYieldsRowBeforeNextTuple exercises Insert the same way
// drain() drives every other operator: BeginTuple, then Next while !IsEnd.
// Insert has exactly one tuple to yield, so Next must return it once,
// before NextTuple marks the operator as ended.
func TestInsertNextYieldsRowBeforeNextTuple(t *testing.T) {
	h := newHarness(t)
	h.createTable(intStringSchema("users", 8, ""))

	_, ctx := h.begin()
	ins, err := NewInsert(ctx, "users", []types.Value{types.IntValue(7), types.StrValue([]byte("bob"))})
	if err != nil {
		t.Fatalf("NewInsert: %v", err)
	}

	rows, err := drain(ins)
	if err != nil {
		t.Fatalf("drain insert: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row from Insert, got %d", len(rows))
	}

	idCol, _ := findCol(ins.Cols(), "id")
	gotID, _ := types.DecodeValue(rows[0], idCol)
	if gotID.Int != 7 {
		t.Fatalf("want id=7, got %d", gotID.Int)
	}

	if !ins.IsEnd() {
		t.Fatalf("want Insert ended after its one row was consumed")
	}
	if _, err := ins.Next(); err == nil {
		t.Fatalf("want Next past end to return an error")
	}
}

func TestDeleteRemovesRowAndIndexEntry(t *testing.T) {
	h := newHarness(t)
	h.createTable(intStringSchema("users", 8, "id_idx"))

	_, ctx := h.begin()
	ins, _ := NewInsert(ctx, "users", []types.Value{types.IntValue(7), types.StrValue([]byte("bob"))})
	if err := ins.BeginTuple(); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rid := ins.Rid()
	if err := h.txnMgr.Commit(ctx.Txn.ID); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	_, ctx2 := h.begin()
	del, err := NewDelete(ctx2, "users", []types.Rid{rid})
	if err != nil {
		t.Fatalf("NewDelete: %v", err)
	}
	if err := del.BeginTuple(); err != nil {
		t.Fatalf("Delete.BeginTuple: %v", err)
	}
	if err := h.txnMgr.Commit(ctx2.Txn.ID); err != nil {
		t.Fatalf("commit delete: %v", err)
	}

	schema, _ := h.catalog.GetTableSchema("users")
	idCol, _ := schema.Column("id")
	key := make([]byte, 4)
	types.IntValue(7).EncodeInto(key, idCol)
	if _, err := h.index.LookupEntry("users", "id_idx", key); !errors.Is(err, types.ErrIndexEntryNotFound) {
		t.Fatalf("want ErrIndexEntryNotFound after delete, got %v", err)
	}

	_, ctx3 := h.begin()
	scan, _ := NewSeqScan(ctx3, "users", nil)
	rows, err := drain(scan)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("want 0 rows after delete, got %d", len(rows))
	}
}

// TestUpdateThenAbortRestoresRowAndIndex exercises the literal update-then-
// abort scenario: after abort, a SELECT sees the original row again and the
// index holds exactly one entry, keyed on the original value.
func TestUpdateThenAbortRestoresRowAndIndex(t *testing.T) {
	h := newHarness(t)
	h.createTable(intStringSchema("users", 8, "id_idx"))

	_, ctx := h.begin()
	ins, _ := NewInsert(ctx, "users", []types.Value{types.IntValue(1), types.StrValue([]byte("a"))})
	if err := ins.BeginTuple(); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rid := ins.Rid()
	if err := h.txnMgr.Commit(ctx.Txn.ID); err != nil {
		t.Fatalf("commit insert: %v", err)
	}

	_, ctx2 := h.begin()
	upd, err := NewUpdate(ctx2, "users", []SetClause{{Col: "id", Val: types.IntValue(2)}}, []types.Rid{rid})
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}
	if err := upd.BeginTuple(); err != nil {
		t.Fatalf("Update.BeginTuple: %v", err)
	}
	if err := h.txnMgr.Abort(ctx2.Txn.ID); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	_, ctx3 := h.begin()
	scan, _ := NewSeqScan(ctx3, "users", nil)
	rows, err := drain(scan)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row after abort, got %d", len(rows))
	}
	idCol, _ := findCol(scan.Cols(), "id")
	gotID, _ := types.DecodeValue(rows[0], idCol)
	if gotID.Int != 1 {
		t.Fatalf("want id restored to 1 after abort, got %d", gotID.Int)
	}

	key1 := make([]byte, 4)
	types.IntValue(1).EncodeInto(key1, idCol)
	if _, err := h.index.LookupEntry("users", "id_idx", key1); err != nil {
		t.Fatalf("index should still resolve key 1 after abort: %v", err)
	}
	key2 := make([]byte, 4)
	types.IntValue(2).EncodeInto(key2, idCol)
	if _, err := h.index.LookupEntry("users", "id_idx", key2); !errors.Is(err, types.ErrIndexEntryNotFound) {
		t.Fatalf("index should not resolve the aborted key 2, got %v", err)
	}
}

func TestNestedLoopJoinAndProjection(t *testing.T) {
	h := newHarness(t)
	h.createTable(intStringSchema("users", 8, "id_idx"))
	h.createTable(intStringSchema("orders", 8, "oid_idx"))

	_, ctx := h.begin()
	for _, v := range [][2]interface{}{{1, "alice"}, {2, "bob"}} {
		ins, _ := NewInsert(ctx, "users", []types.Value{types.IntValue(int32(v[0].(int))), types.StrValue([]byte(v[1].(string)))})
		if err := ins.BeginTuple(); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	for _, v := range [][2]interface{}{{1, "pen"}, {3, "orphan"}} {
		ins, _ := NewInsert(ctx, "orders", []types.Value{types.IntValue(int32(v[0].(int))), types.StrValue([]byte(v[1].(string)))})
		if err := ins.BeginTuple(); err != nil {
			t.Fatalf("insert order: %v", err)
		}
	}
	if err := h.txnMgr.Commit(ctx.Txn.ID); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, ctx2 := h.begin()
	left, _ := NewSeqScan(ctx2, "users", nil)
	right, _ := NewSeqScan(ctx2, "orders", nil)
	join := NewNestedLoopJoin(ctx2, left, right, []Condition{
		{LhsCol: "id", Op: OpEq, RhsCol: "id"},
	})
	proj, err := NewProjection(ctx2, join, []string{"name"})
	if err != nil {
		t.Fatalf("NewProjection: %v", err)
	}
	rows, err := drain(proj)
	if err != nil {
		t.Fatalf("drain projection: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 joined row (id=1 only), got %d", len(rows))
	}
	nameCol, _ := findCol(proj.Cols(), "name")
	got, _ := types.DecodeValue(rows[0], nameCol)
	if string(got.Str) != string(padStr("alice", 8)) {
		t.Fatalf("want projected name=alice, got %q", got.Str)
	}
}
