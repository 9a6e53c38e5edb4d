package indexfile

import (
	bplus "DaemonDB/storage_engine/access/indexfile_manager/bplustree"
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"sync"
)

// indexKey identifies one B+ tree among possibly several on the same table.
type indexKey struct {
	table string
	index string
}

type IndexFileManager struct {
	baseDir     string                    // e.g., /data/mydb/indexes
	indexes     map[indexKey]*bplus.BPlusTree
	bufferPool  *bufferpool.BufferPool   // ← shared with heap files
	diskManager *diskmanager.DiskManager // ← shared with heap files
	mu          sync.RWMutex
}
