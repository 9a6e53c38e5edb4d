package catalog

import (
	heapfile "DaemonDB/storage_engine/access/heapfile_manager"
	indexfile "DaemonDB/storage_engine/access/indexfile_manager"
	types "DaemonDB/types"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

/*
This file is the main acess of Catalog Manager
Catalog manager maintains the metadata of the database and also persist it on the disk
It persists Heap File Counting, Table to fileId mapping and Schema of tables on the disk
All these mappings are loaded when USE command is executed
*/

// NewCatalogManager wires a catalog to the heap and index managers it needs
// to actually create/open/close/drop the storage a database's tables and
// indexes live in. heap and index may be nil for tests that only exercise
// metadata bookkeeping; create_table, create_index's backfill, drop_table's
// file cleanup, and close_db/drop_db's teardown are all no-ops for the
// storage side when the corresponding manager is nil.
func NewCatalogManager(dbRoot string, heap *heapfile.HeapFileManager, index *indexfile.IndexFileManager) (*CatalogManager, error) {
	return &CatalogManager{
		dbRoot:        dbRoot,
		nextFileID:    1,
		TableToFileId: make(map[string]TableFileMapping),
		tableSchemas:  make(map[string]types.TableSchema),
		heap:          heap,
		index:         index,
	}, nil
}

func (cm *CatalogManager) SetCurrentDatabase(newDb string) {
	fmt.Printf("currDb: %s  newDb: %s\n", cm.currDb, newDb)
	cm.currDb = newDb
}

// CreateDB makes a database directory under dbRoot (a "tables" subdirectory
// for schema files and a "metadata" subdirectory for the table-file mapping
// and next-file-id counter) and makes it the current database. It fails if
// a database of this name already exists.
func (cm *CatalogManager) CreateDB(name string) error {
	dbPath := filepath.Join(cm.dbRoot, name)
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database %q already exists", name)
	}
	if err := os.MkdirAll(filepath.Join(dbPath, "tables"), 0755); err != nil {
		return fmt.Errorf("create_db %q: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Join(dbPath, "metadata"), 0755); err != nil {
		return fmt.Errorf("create_db %q: %w", name, err)
	}

	cm.currDb = name
	cm.tableSchemas = make(map[string]types.TableSchema)
	cm.TableToFileId = make(map[string]TableFileMapping)
	cm.nextFileID = 1

	if err := cm.PersistTableMapping(); err != nil {
		return err
	}
	return cm.persistNextFileID()
}

// OpenDB makes name the current database, loading its table-file mapping,
// next-file-id counter, and every table schema from disk. It fails if the
// database's directory does not exist.
func (cm *CatalogManager) OpenDB(name string) error {
	dbPath := filepath.Join(cm.dbRoot, name)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("open_db %q: database does not exist", name)
	}

	cm.currDb = name
	if err := cm.LoadTableFileMapping(); err != nil {
		return fmt.Errorf("open_db %q: %w", name, err)
	}
	if err := cm.LoadAllTableSchemas(); err != nil {
		return fmt.Errorf("open_db %q: %w", name, err)
	}

	// Reopen every table's heap file and every index file so DML against a
	// freshly reopened database finds the same storage it left behind.
	for tableName, mapping := range cm.TableToFileId {
		if cm.heap != nil {
			if _, err := cm.heap.LoadHeapFile(mapping.HeapFileID, tableName); err != nil {
				return fmt.Errorf("open_db %q: %w", name, err)
			}
		}
		if cm.index != nil {
			for indexName, indexFileID := range mapping.IndexFileIDs {
				if err := cm.index.LoadIndex(tableName, indexName, indexFileID); err != nil {
					return fmt.Errorf("open_db %q: %w", name, err)
				}
			}
		}
	}
	return nil
}

// CloseDB flushes the current database's metadata to disk, releases every
// open heap and index file, and clears the in-memory catalog so a stale
// schema can't be read once the database is closed. Closing when no
// database is open is a no-op.
func (cm *CatalogManager) CloseDB() error {
	if cm.currDb == "" {
		return nil
	}

	if err := cm.PersistTableMapping(); err != nil {
		return fmt.Errorf("close_db: %w", err)
	}
	if err := cm.persistNextFileID(); err != nil {
		return fmt.Errorf("close_db: %w", err)
	}

	if cm.heap != nil {
		if err := cm.heap.CloseAll(); err != nil {
			return fmt.Errorf("close_db: %w", err)
		}
	}
	if cm.index != nil {
		if err := cm.index.CloseAll(); err != nil {
			return fmt.Errorf("close_db: %w", err)
		}
	}

	cm.currDb = ""
	cm.tableSchemas = make(map[string]types.TableSchema)
	cm.TableToFileId = make(map[string]TableFileMapping)
	return nil
}

// DropDB removes the named database's directory wholesale. If it is the
// currently open database, drop_table's own heap/index cleanup runs first
// for every registered table, and every open heap and index file is
// released before the directory is removed.
func (cm *CatalogManager) DropDB(name string) error {
	if cm.currDb == name {
		for table := range cm.TableToFileId {
			if err := cm.UnregisterTable(table); err != nil {
				return fmt.Errorf("drop_db %q: %w", name, err)
			}
		}
		if err := cm.CloseDB(); err != nil {
			return fmt.Errorf("drop_db %q: %w", name, err)
		}
	}

	dbPath := filepath.Join(cm.dbRoot, name)
	if err := os.RemoveAll(dbPath); err != nil {
		return fmt.Errorf("drop_db %q: %w", name, err)
	}
	return nil
}

func (cm *CatalogManager) TableExists(tableName string) bool {
	if cm.tableSchemas == nil {
		return false
	}
	_, exists := cm.tableSchemas[tableName]
	return exists
}

func (cm *CatalogManager) GetTableSchema(name string) (types.TableSchema, error) {

	if cm.currDb == "" {
		return types.TableSchema{}, fmt.Errorf("no database selected")
	}
	fmt.Printf("tablename: %+v\n", cm.tableSchemas)
	// Initialize catalog map if nil
	if cm.tableSchemas == nil {
		cm.tableSchemas = make(map[string]types.TableSchema)
	}

	// Fast path: return from memory
	if schema, ok := cm.tableSchemas[name]; ok {
		return schema, nil
	}

	// Load from disk
	schemaPath := filepath.Join(
		cm.dbRoot,
		cm.currDb,
		"tables",
		name+"_schema.json",
	)

	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return types.TableSchema{}, fmt.Errorf(
			"table '%s' does not exist",
			name,
		)
	}

	var schema types.TableSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return types.TableSchema{}, fmt.Errorf(
			"failed to parse schema for table '%s': %w",
			name,
			err,
		)
	}

	// Cache in memory for future lookups
	cm.tableSchemas[name] = schema

	return schema, nil
}

// RegisterNewTable validates no table of this name already exists, then
// allocates a heap file and one index file per index named in
// schema.Indexes, creates them on disk (when catalog is wired to real heap
// and index managers), persists the schema and the new mappings, and
// returns the heap file id plus the per-index-name file id map.
func (cm *CatalogManager) RegisterNewTable(schema types.TableSchema) (uint32, map[string]uint32, error) {

	tableName := schema.TableName

	if cm.tableSchemas == nil {
		cm.tableSchemas = make(map[string]types.TableSchema)
	}
	if cm.TableToFileId == nil {
		cm.TableToFileId = make(map[string]TableFileMapping)
	}

	if cm.TableExists(tableName) {
		return 0, nil, fmt.Errorf("table %q: %w", tableName, types.ErrTableExists)
	}

	heapFileID := cm.nextFileID
	cm.nextFileID++

	indexFileIDs := make(map[string]uint32, len(schema.Indexes))
	for _, idx := range schema.Indexes {
		indexFileIDs[idx.Name] = cm.nextFileID
		cm.nextFileID++
	}

	if cm.heap != nil {
		if err := cm.heap.CreateHeapfile(tableName, int(heapFileID)); err != nil {
			return 0, nil, fmt.Errorf("create_table %q: %w", tableName, err)
		}
	}
	if cm.index != nil {
		for _, idx := range schema.Indexes {
			if _, err := cm.index.GetOrCreateIndex(tableName, idx.Name, indexFileIDs[idx.Name]); err != nil {
				return 0, nil, fmt.Errorf("create_table %q: %w", tableName, err)
			}
		}
	}

	cm.tableSchemas[tableName] = schema
	cm.TableToFileId[tableName] = TableFileMapping{
		HeapFileID:   heapFileID,
		IndexFileIDs: indexFileIDs,
	}

	if err := cm.persistSchema(schema); err != nil {
		return 0, nil, err
	}
	if err := cm.PersistTableMapping(); err != nil {
		return 0, nil, err
	}
	if err := cm.persistNextFileID(); err != nil {
		return 0, nil, err
	}

	return heapFileID, indexFileIDs, nil
}

// CreateIndex allocates a new file id for idx on tableName, opens its B+
// tree, and — when a heap is wired — walks every live row in the table via
// SeqScan-style row pointers, building the (key, rid) pair for each and
// bulk-inserting it into the new tree before the index is registered. This
// keeps the index↔heap invariant (every live row has exactly one leaf
// entry) true even when create_index runs against a table that already
// has rows. Returns types.ErrIndexExists if the table already has an index
// of that name or one covering exactly the same columns.
func (cm *CatalogManager) CreateIndex(tableName string, idx types.IndexDef) (uint32, error) {
	schema, err := cm.GetTableSchema(tableName)
	if err != nil {
		return 0, err
	}
	if _, ok := schema.Index(idx.Name); ok {
		return 0, fmt.Errorf("index %q on table %q: %w", idx.Name, tableName, types.ErrIndexExists)
	}
	for _, existing := range schema.Indexes {
		if sameColumns(existing.Columns, idx.Columns) {
			return 0, fmt.Errorf("index on %v on table %q: %w", idx.Columns, tableName, types.ErrIndexExists)
		}
	}

	fileID := cm.nextFileID
	cm.nextFileID++

	if cm.index != nil {
		if _, err := cm.index.GetOrCreateIndex(tableName, idx.Name, fileID); err != nil {
			return 0, fmt.Errorf("create_index %q on %q: %w", idx.Name, tableName, err)
		}
		if cm.heap != nil {
			if err := cm.backfillIndex(tableName, schema, idx); err != nil {
				return 0, fmt.Errorf("create_index %q on %q: %w", idx.Name, tableName, err)
			}
		}
	}

	schema.Indexes = append(schema.Indexes, idx)
	cm.tableSchemas[tableName] = schema

	mapping := cm.TableToFileId[tableName]
	if mapping.IndexFileIDs == nil {
		mapping.IndexFileIDs = make(map[string]uint32)
	}
	mapping.IndexFileIDs[idx.Name] = fileID
	cm.TableToFileId[tableName] = mapping

	if err := cm.persistSchema(schema); err != nil {
		return 0, err
	}
	if err := cm.PersistTableMapping(); err != nil {
		return 0, err
	}
	if err := cm.persistNextFileID(); err != nil {
		return 0, err
	}
	return fileID, nil
}

// backfillIndex walks every live record in tableName's heap file and
// inserts its (key, rid) pair into idx's already-opened B+ tree.
func (cm *CatalogManager) backfillIndex(tableName string, schema types.TableSchema, idx types.IndexDef) error {
	heapFileID, err := cm.GetTableFileID(tableName)
	if err != nil {
		return err
	}
	rowPointers, err := cm.heap.ScanRowPointers(heapFileID)
	if err != nil {
		return err
	}
	for _, rp := range rowPointers {
		record, err := cm.heap.GetRow(&rp)
		if err != nil {
			return err
		}
		key, err := types.BuildIndexKey(record, schema.Columns, idx)
		if err != nil {
			return err
		}
		rid := types.RidFromPointer(rp)
		if _, err := cm.index.InsertEntry(tableName, idx.Name, key, rid); err != nil {
			return err
		}
	}
	return nil
}

// sameColumns reports whether a and b name the same columns in the same
// order — the ordering matters because it determines the byte layout a
// composite key is compared under.
func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DropIndex removes idxName from tableName's schema and file mapping and
// persists both. Returns types.ErrIndexNotFound if no such index exists.
func (cm *CatalogManager) DropIndex(tableName, idxName string) error {
	schema, err := cm.GetTableSchema(tableName)
	if err != nil {
		return err
	}
	found := -1
	for i, idx := range schema.Indexes {
		if idx.Name == idxName {
			found = i
			break
		}
	}
	if found == -1 {
		return fmt.Errorf("index %q on table %q: %w", idxName, tableName, types.ErrIndexNotFound)
	}

	if cm.index != nil {
		if err := cm.index.DropIndexFile(tableName, idxName); err != nil {
			return fmt.Errorf("drop_index %q on %q: %w", idxName, tableName, err)
		}
	}

	schema.Indexes = append(schema.Indexes[:found], schema.Indexes[found+1:]...)
	cm.tableSchemas[tableName] = schema

	mapping := cm.TableToFileId[tableName]
	delete(mapping.IndexFileIDs, idxName)
	cm.TableToFileId[tableName] = mapping

	if err := cm.persistSchema(schema); err != nil {
		return err
	}
	return cm.PersistTableMapping()
}

// UnregisterTable implements drop_table: it closes and deletes the table's
// heap file and every index file registered under it, then removes the
// table from the catalog's own schema and file-id mapping.
func (cm *CatalogManager) UnregisterTable(tableName string) error {
	// guard
	if cm.tableSchemas == nil || cm.TableToFileId == nil {
		return fmt.Errorf("catalog not initialised")
	}

	if _, exists := cm.tableSchemas[tableName]; !exists {
		return fmt.Errorf("table %q: %w", tableName, types.ErrTableNotFound)
	}

	mapping := cm.TableToFileId[tableName]

	if cm.index != nil {
		for indexName := range mapping.IndexFileIDs {
			if err := cm.index.DropIndexFile(tableName, indexName); err != nil {
				return fmt.Errorf("drop_table %q: %w", tableName, err)
			}
		}
	}
	if cm.heap != nil {
		if err := cm.heap.DropHeapfile(tableName); err != nil {
			return fmt.Errorf("drop_table %q: %w", tableName, err)
		}
	}

	// remove from in-memory maps
	delete(cm.tableSchemas, tableName)
	delete(cm.TableToFileId, tableName)

	schemaPath := filepath.Join(cm.dbRoot, cm.currDb, "tables", tableName+"_schema.json")
	if err := os.Remove(schemaPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete schema file: %w", err)
	}

	if err := cm.PersistTableMapping(); err != nil {
		return err
	}
	if err := cm.persistNextFileID(); err != nil {
		return err
	}

	return nil
}

func (cm *CatalogManager) persistSchema(schema types.TableSchema) error {

	schemaDir := filepath.Join(cm.dbRoot, cm.currDb, "tables")
	if err := os.MkdirAll(schemaDir, 0755); err != nil {
		return err
	}

	schemaPath := filepath.Join(schemaDir, schema.TableName+"_schema.json")

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(schemaPath, data, 0644)
}

func (cm *CatalogManager) PersistTableMapping() error {
	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cm.TableToFileId, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(metaDir, "table_file_mapping.json"), data, 0644)
}

func (cm *CatalogManager) persistNextFileID() error {
	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cm.nextFileID, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(metaDir, "next_file_id.json"), data, 0644)
}

func (cm *CatalogManager) GetTableFileID(tableName string) (uint32, error) {
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		return 0, fmt.Errorf("table '%s' not found in file mapping", tableName)
	}
	return mapping.HeapFileID, nil
}

// GetIndexFileID returns the file id allocated to the named index on
// tableName.
func (cm *CatalogManager) GetIndexFileID(tableName, indexName string) (uint32, error) {
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		return 0, fmt.Errorf("table '%s' not found in file mapping", tableName)
	}
	fileID, ok := mapping.IndexFileIDs[indexName]
	if !ok {
		return 0, fmt.Errorf("index '%s' on table '%s' not found in file mapping", indexName, tableName)
	}
	return fileID, nil
}

// GetIndexFileIDs returns every index-name→file-id mapping for tableName.
func (cm *CatalogManager) GetIndexFileIDs(tableName string) (map[string]uint32, error) {
	mapping, exists := cm.TableToFileId[tableName]
	if !exists {
		return nil, fmt.Errorf("table '%s' not found in file mapping", tableName)
	}
	return mapping.IndexFileIDs, nil
}
func (cm *CatalogManager) LoadTableFileMapping() error {
	metaDir := filepath.Join(cm.dbRoot, cm.currDb, "metadata")
	cm.TableToFileId = make(map[string]TableFileMapping)

	data, err := os.ReadFile(filepath.Join(metaDir, "table_file_mapping.json"))
	if err != nil {
		if os.IsNotExist(err) {
			cm.nextFileID = 1
			return nil
		}
		return fmt.Errorf("failed to read mapping file: %w", err)
	}

	if err := json.Unmarshal(data, &cm.TableToFileId); err != nil {
		return fmt.Errorf("failed to unmarshal mapping: %w", err)
	}

	// restore counter
	counterData, err := os.ReadFile(filepath.Join(metaDir, "next_file_id.json"))
	if err == nil {
		var counter uint32
		if json.Unmarshal(counterData, &counter) == nil {
			cm.nextFileID = counter
		}
	} else {
		// fallback: each table has 2 files
		cm.nextFileID = uint32(len(cm.TableToFileId)*2) + 1
	}

	return nil
}

func (cm *CatalogManager) LoadAllTableSchemas() error {
	if cm.currDb == "" {
		return fmt.Errorf("no database selected")
	}

	// reset the tableSchema
	cm.tableSchemas = make(map[string]types.TableSchema)

	tablesDir := filepath.Join(cm.dbRoot, cm.currDb, "tables")

	entries, err := os.ReadDir(tablesDir)
	if err != nil {
		return fmt.Errorf("failed to read tables directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, "_schema.json") {
			continue
		}

		schemaPath := filepath.Join(tablesDir, name)
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", schemaPath, err)
		}

		var schema types.TableSchema
		if err := json.Unmarshal(data, &schema); err != nil {
			return fmt.Errorf("invalid schema in file %s: %w", schemaPath, err)
		}

		if cm.tableSchemas == nil {
			cm.tableSchemas = make(map[string]types.TableSchema)
		}
		cm.tableSchemas[schema.TableName] = schema
	}

	return nil
}

// GetAllTableMappings returns a copy of the in-memory tableâ†’fileID map.
func (cm *CatalogManager) GetAllTableMappings() map[string]TableFileMapping {
	result := make(map[string]TableFileMapping)
	for k, v := range cm.TableToFileId {
		result[k] = v
	}
	return result
}
