package catalog

import (
	heapfile "DaemonDB/storage_engine/access/heapfile_manager"
	indexfile "DaemonDB/storage_engine/access/indexfile_manager"
	types "DaemonDB/types"
)

// CatalogManager owns the metadata of one open database: the schema and
// file-id mapping of every table, plus the heap and index managers that
// back create_table/create_index/drop_table with real storage. A single
// CatalogManager has at most one database open at a time (currDb), matching
// the disk manager and buffer pool it shares with heap and index.
type CatalogManager struct {
	dbRoot        string
	currDb        string
	TableToFileId map[string]TableFileMapping
	nextFileID    uint32
	tableSchemas  map[string]types.TableSchema
	heap          *heapfile.HeapFileManager
	index         *indexfile.IndexFileManager
}

type TableFileMapping struct {
	HeapFileID uint32 `json:"heap_file_id"`
	// IndexFileIDs maps an index name (types.IndexDef.Name) to the file id
	// its B+ tree is stored under. A table may carry any number of indexes.
	IndexFileIDs map[string]uint32 `json:"index_file_ids"`
}
