package catalog

import (
	heapfile "DaemonDB/storage_engine/access/heapfile_manager"
	indexfile "DaemonDB/storage_engine/access/indexfile_manager"
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/types"
	"errors"
	"testing"
)

// newTestCatalog wires a catalog to real heap and index managers rooted at
// a per-test temp directory, so create_table/create_index/drop_table exert
// the same storage-layer side effects they would in production.
func newTestCatalog(t *testing.T) *CatalogManager {
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

	cm, err := NewCatalogManager(root+"/catalog", hfm, ifm)
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}
	cm.SetCurrentDatabase("testdb")
	return cm
}

func ordersSchema() types.TableSchema {
	schema := types.TableSchema{
		TableName: "orders",
		Columns: []types.ColumnDef{
			{Name: "id", Type: types.ColInt, Len: 4, IsPrimaryKey: true},
			{Name: "customer", Type: types.ColString, Len: 16},
		},
		Indexes: []types.IndexDef{
			{Name: "id_idx", Columns: []string{"id"}, ColTotLen: 4},
		},
	}
	schema.AssignOffsets()
	return schema
}

func TestRegisterNewTableAllocatesOneFileIDPerIndex(t *testing.T) {
	cm := newTestCatalog(t)
	schema := ordersSchema()

	heapFileID, indexFileIDs, err := cm.RegisterNewTable(schema)
	if err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}
	if heapFileID == 0 {
		t.Fatalf("want nonzero heap file id")
	}
	idIdxFileID, ok := indexFileIDs["id_idx"]
	if !ok || idIdxFileID == 0 || idIdxFileID == heapFileID {
		t.Fatalf("want id_idx to have its own nonzero file id, got %v (heap=%d)", indexFileIDs, heapFileID)
	}

	got, err := cm.GetTableFileID("orders")
	if err != nil {
		t.Fatalf("GetTableFileID: %v", err)
	}
	if got != heapFileID {
		t.Fatalf("want %d, got %d", heapFileID, got)
	}
}

func TestCreateIndexAddsIndexToExistingTable(t *testing.T) {
	cm := newTestCatalog(t)
	schema := ordersSchema()
	schema.Indexes = nil
	if _, _, err := cm.RegisterNewTable(schema); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	fileID, err := cm.CreateIndex("orders", types.IndexDef{Name: "customer_idx", Columns: []string{"customer"}, ColTotLen: 16})
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if fileID == 0 {
		t.Fatalf("want nonzero file id for new index")
	}

	got, err := cm.GetIndexFileID("orders", "customer_idx")
	if err != nil {
		t.Fatalf("GetIndexFileID: %v", err)
	}
	if got != fileID {
		t.Fatalf("want %d, got %d", fileID, got)
	}

	schemaAfter, err := cm.GetTableSchema("orders")
	if err != nil {
		t.Fatalf("GetTableSchema: %v", err)
	}
	if _, ok := schemaAfter.Index("customer_idx"); !ok {
		t.Fatalf("want customer_idx present in reloaded schema")
	}
}

func TestCreateIndexRejectsDuplicateName(t *testing.T) {
	cm := newTestCatalog(t)
	if _, _, err := cm.RegisterNewTable(ordersSchema()); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	_, err := cm.CreateIndex("orders", types.IndexDef{Name: "id_idx", Columns: []string{"id"}, ColTotLen: 4})
	if !errors.Is(err, types.ErrIndexExists) {
		t.Fatalf("want ErrIndexExists, got %v", err)
	}
}

func TestDropIndexRemovesFromSchemaAndMapping(t *testing.T) {
	cm := newTestCatalog(t)
	if _, _, err := cm.RegisterNewTable(ordersSchema()); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	if err := cm.DropIndex("orders", "id_idx"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}

	if _, err := cm.GetIndexFileID("orders", "id_idx"); err == nil {
		t.Fatalf("want error looking up a dropped index's file id")
	}
	schema, err := cm.GetTableSchema("orders")
	if err != nil {
		t.Fatalf("GetTableSchema: %v", err)
	}
	if _, ok := schema.Index("id_idx"); ok {
		t.Fatalf("want id_idx gone from schema after drop")
	}
}

func TestDropIndexUnknownNameReturnsErrIndexNotFound(t *testing.T) {
	cm := newTestCatalog(t)
	if _, _, err := cm.RegisterNewTable(ordersSchema()); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	err := cm.DropIndex("orders", "nope")
	if !errors.Is(err, types.ErrIndexNotFound) {
		t.Fatalf("want ErrIndexNotFound, got %v", err)
	}
}

func TestRegisterNewTableRejectsDuplicateName(t *testing.T) {
	cm := newTestCatalog(t)
	if _, _, err := cm.RegisterNewTable(ordersSchema()); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	_, _, err := cm.RegisterNewTable(ordersSchema())
	if !errors.Is(err, types.ErrTableExists) {
		t.Fatalf("want ErrTableExists, got %v", err)
	}
}

func TestUnregisterTableWrapsErrTableNotFound(t *testing.T) {
	cm := newTestCatalog(t)
	err := cm.UnregisterTable("nope")
	if !errors.Is(err, types.ErrTableNotFound) {
		t.Fatalf("want ErrTableNotFound, got %v", err)
	}
}

func TestUnregisterTableDeletesHeapAndIndexFiles(t *testing.T) {
	cm := newTestCatalog(t)
	if _, _, err := cm.RegisterNewTable(ordersSchema()); err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	if err := cm.UnregisterTable("orders"); err != nil {
		t.Fatalf("UnregisterTable: %v", err)
	}

	if _, err := cm.heap.GetHeapFileByTable("orders"); err == nil {
		t.Fatalf("want orders' heap file gone after drop_table")
	}
	if _, err := cm.index.LookupEntry("orders", "id_idx", []byte{0, 0, 0, 1}); !errors.Is(err, types.ErrIndexNotFound) {
		t.Fatalf("want orders' id_idx unopened after drop_table, got %v", err)
	}
}

// putOrderRow encodes one (id, customer) row into ordersSchema's layout.
func putOrderRow(t *testing.T, schema types.TableSchema, id int32, customer string) []byte {
	t.Helper()
	rec := make([]byte, schema.RecordSize())
	idCol, _ := schema.Column("id")
	custCol, _ := schema.Column("customer")
	if err := types.IntValue(id).EncodeInto(rec[idCol.Offset:idCol.Offset+idCol.Len], idCol); err != nil {
		t.Fatalf("encode id: %v", err)
	}
	if err := types.StrValue([]byte(customer)).EncodeInto(rec[custCol.Offset:custCol.Offset+custCol.Len], custCol); err != nil {
		t.Fatalf("encode customer: %v", err)
	}
	return rec
}

// TestCreateIndexBackfillsExistingRows confirms create_index on a table that
// already has rows leaves every one of them reachable through the new
// index, not just rows inserted afterwards.
func TestCreateIndexBackfillsExistingRows(t *testing.T) {
	cm := newTestCatalog(t)
	schema := ordersSchema()
	schema.Indexes = nil
	heapFileID, _, err := cm.RegisterNewTable(schema)
	if err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}

	for i, customer := range []string{"alice", "bob", "carol"} {
		rec := putOrderRow(t, schema, int32(i+1), customer)
		if _, err := cm.heap.InsertRow(heapFileID, rec, 0); err != nil {
			t.Fatalf("InsertRow: %v", err)
		}
	}

	if _, err := cm.CreateIndex("orders", types.IndexDef{Name: "id_idx", Columns: []string{"id"}, ColTotLen: 4}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	for i := 1; i <= 3; i++ {
		key := make([]byte, 4)
		types.IntValue(int32(i)).EncodeInto(key, types.ColumnDef{Type: types.ColInt, Len: 4})
		if _, err := cm.index.LookupEntry("orders", "id_idx", key); err != nil {
			t.Fatalf("want row id=%d reachable through backfilled index, got %v", i, err)
		}
	}
}

// TestDatabaseLifecycleRecoversTablesAndRows drives create_db, create_table,
// create_index, a handful of inserts, close_db, then open_db again, and
// checks the table, its index, and its rows all survive the round trip.
func TestDatabaseLifecycleRecoversTablesAndRows(t *testing.T) {
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
	cm, err := NewCatalogManager(root+"/catalog", hfm, ifm)
	if err != nil {
		t.Fatalf("NewCatalogManager: %v", err)
	}

	if err := cm.CreateDB("shop"); err != nil {
		t.Fatalf("CreateDB: %v", err)
	}

	schema := ordersSchema()
	schema.Indexes = nil
	heapFileID, _, err := cm.RegisterNewTable(schema)
	if err != nil {
		t.Fatalf("RegisterNewTable: %v", err)
	}
	if _, err := cm.CreateIndex("orders", types.IndexDef{Name: "id_idx", Columns: []string{"id"}, ColTotLen: 4}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	for i, customer := range []string{"alice", "bob"} {
		rec := putOrderRow(t, schema, int32(i+1), customer)
		rp, err := cm.heap.InsertRow(heapFileID, rec, 0)
		if err != nil {
			t.Fatalf("InsertRow: %v", err)
		}
		key := make([]byte, 4)
		types.IntValue(int32(i + 1)).EncodeInto(key, types.ColumnDef{Type: types.ColInt, Len: 4})
		rid := types.RidFromPointer(*rp)
		if _, err := cm.index.InsertEntry("orders", "id_idx", key, rid); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	if err := cm.CloseDB(); err != nil {
		t.Fatalf("CloseDB: %v", err)
	}
	if err := cm.OpenDB("shop"); err != nil {
		t.Fatalf("OpenDB: %v", err)
	}

	reopenedSchema, err := cm.GetTableSchema("orders")
	if err != nil {
		t.Fatalf("GetTableSchema after reopen: %v", err)
	}
	if _, ok := reopenedSchema.Index("id_idx"); !ok {
		t.Fatalf("want id_idx registered after reopen")
	}

	reopenedFileID, err := cm.GetTableFileID("orders")
	if err != nil {
		t.Fatalf("GetTableFileID after reopen: %v", err)
	}
	rowPointers, err := cm.heap.ScanRowPointers(reopenedFileID)
	if err != nil {
		t.Fatalf("ScanRowPointers after reopen: %v", err)
	}
	if len(rowPointers) != 2 {
		t.Fatalf("want 2 rows recovered after reopen, got %d", len(rowPointers))
	}

	for i := 1; i <= 2; i++ {
		key := make([]byte, 4)
		types.IntValue(int32(i)).EncodeInto(key, types.ColumnDef{Type: types.ColInt, Len: 4})
		if _, err := cm.index.LookupEntry("orders", "id_idx", key); err != nil {
			t.Fatalf("want row id=%d reachable through the reopened index, got %v", i, err)
		}
	}
}
