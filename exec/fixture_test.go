package exec

import (
	heapfile "DaemonDB/storage_engine/access/heapfile_manager"
	indexfile "DaemonDB/storage_engine/access/indexfile_manager"
	"DaemonDB/storage_engine/bufferpool"
	"DaemonDB/storage_engine/catalog"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/storage_engine/lockmgr"
	txn "DaemonDB/storage_engine/transaction_manager"
	"DaemonDB/types"
	"testing"
)

// harness bundles every collaborator a test needs to stand up a table with
// its indexes and drive executors against it through a real transaction.
type harness struct {
	t       *testing.T
	disk    *diskmanager.DiskManager
	pool    *bufferpool.BufferPool
	heap    *heapfile.HeapFileManager
	index   *indexfile.IndexFileManager
	catalog *catalog.CatalogManager
	lockMgr *lockmgr.LockManager
	txnMgr  *txn.TxnManager
}

// newHarness wires a fresh set of storage-layer collaborators rooted at a
// per-test temp directory, mirroring the chain CreateHeapfile/OpenBPlusTree
// document: disk manager, then buffer pool, then the two access managers.
func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()

	disk := diskmanager.NewDiskManager()
	pool := bufferpool.NewBufferPool(64, disk)

	hfm, err := heapfile.NewHeapFileManager(root+"/heap", disk, pool)
	if err != nil {
		t.Fatalf("NewHeapFileManager: %v", err)
	}
	ifm, err := indexfile.NewIndexFileManager(root+"/index", disk, pool)
	if err != nil {
		t.Fatalf("NewIndexFileManager: %v", err)
	}
	cm, err := catalog.NewCatalogManager(root+"/catalog", hfm, ifm)
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}
	cm.SetCurrentDatabase("testdb")

	lm := lockmgr.NewLockManager()
	tm := txn.NewTxnManager(lm, hfm, ifm)

	return &harness{
		t:       t,
		disk:    disk,
		pool:    pool,
		heap:    hfm,
		index:   ifm,
		catalog: cm,
		lockMgr: lm,
		txnMgr:  tm,
	}
}

// createTable registers schema in the catalog, which (now that the catalog
// is wired to real heap and index managers) also creates its heap file and
// opens every declared index, leaving the table ready for DML.
func (h *harness) createTable(schema types.TableSchema) {
	h.t.Helper()
	schema.AssignOffsets()

	if _, _, err := h.catalog.RegisterNewTable(schema); err != nil {
		h.t.Fatalf("RegisterNewTable: %v", err)
	}
}

// begin starts a fresh transaction and returns an exec.Context wired to it.
func (h *harness) begin() (*txn.Transaction, *Context) {
	tx := h.txnMgr.Begin()
	return tx, &Context{
		Heap:    h.heap,
		Index:   h.index,
		Catalog: h.catalog,
		TxnMgr:  h.txnMgr,
		Txn:     tx,
	}
}

// intStringSchema builds a two-column (id INT, name STRING(len)) table named
// name, with a clustered index on id named idxName when idxName is not "".
func intStringSchema(table string, strLen int, idxName string) types.TableSchema {
	schema := types.TableSchema{
		TableName: table,
		Columns: []types.ColumnDef{
			{Name: "id", Type: types.ColInt, Len: 4, IsPrimaryKey: true},
			{Name: "name", Type: types.ColString, Len: strLen},
		},
	}
	if idxName != "" {
		schema.Indexes = []types.IndexDef{
			{Name: idxName, Columns: []string{"id"}, ColTotLen: 4},
		}
	}
	return schema
}

// padStr right-pads s with zero bytes to n, matching EncodeInto's on-disk
// string layout so decoded values compare equal byte-for-byte.
func padStr(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// drain runs op to completion and returns every yielded record.
func drain(op Operator) ([][]byte, error) {
	if err := op.BeginTuple(); err != nil {
		return nil, err
	}
	var out [][]byte
	for !op.IsEnd() {
		rec, err := op.Next()
		if err != nil {
			return nil, err
		}
		cp := make([]byte, len(rec))
		copy(cp, rec)
		out = append(out, cp)
		if err := op.NextTuple(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
