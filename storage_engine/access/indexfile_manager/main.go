package indexfile

import (
	bplus "DaemonDB/storage_engine/access/indexfile_manager/bplustree"
	"DaemonDB/storage_engine/bufferpool"
	diskmanager "DaemonDB/storage_engine/disk_manager"
	"DaemonDB/types"
	"fmt"
	"os"
	"path/filepath"
)

/*
This file is the main file for Index File Manager that deals with the Index pages
Similar to HeapFileManager this also have access to disk manager and buffer pool

Each table may carry several indexes (clustered on the primary key and zero
or more secondary ones); every index gets its own B+ tree file, named
<table>_<indexName>.idx under baseDir.
*/

func NewIndexFileManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*IndexFileManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	return &IndexFileManager{
		baseDir:     baseDir,
		indexes:     make(map[indexKey]*bplus.BPlusTree),
		bufferPool:  bufferPool,
		diskManager: diskManager,
	}, nil
}

func (ifm *IndexFileManager) path(tableName, indexName string) string {
	return filepath.Join(ifm.baseDir, fmt.Sprintf("%s_%s.idx", tableName, indexName))
}

// GetOrCreateIndex returns the B+ tree for (tableName, indexName), opening
// or creating its backing file under indexFileID on first use.
func (ifm *IndexFileManager) GetOrCreateIndex(tableName, indexName string, indexFileID uint32) (*bplus.BPlusTree, error) {
	key := indexKey{table: tableName, index: indexName}

	ifm.mu.RLock()
	btree, exists := ifm.indexes[key]
	ifm.mu.RUnlock()

	if exists && btree != nil {
		return btree, nil
	}

	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	if btree, exists := ifm.indexes[key]; exists && btree != nil {
		return btree, nil
	}

	btree, err := bplus.OpenBPlusTree(ifm.path(tableName, indexName), indexFileID, ifm.bufferPool, ifm.diskManager)
	if err != nil {
		return nil, fmt.Errorf("failed to open B+ tree for table '%s' index '%s': %w", tableName, indexName, err)
	}

	ifm.indexes[key] = btree
	return btree, nil
}

// CloseIndex closes the named index on tableName and removes it from cache.
func (ifm *IndexFileManager) CloseIndex(tableName, indexName string) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	key := indexKey{table: tableName, index: indexName}
	btree, exists := ifm.indexes[key]
	if !exists {
		return nil
	}

	if err := btree.Close(); err != nil {
		return fmt.Errorf("failed to close index '%s' for table '%s': %w", indexName, tableName, err)
	}

	delete(ifm.indexes, key)
	return nil
}

// DropIndexFile closes the named index, if open, and deletes its file from
// disk. drop_table and drop_index both route through this so a dropped
// index never leaves a stray B+ tree file behind.
func (ifm *IndexFileManager) DropIndexFile(tableName, indexName string) error {
	key := indexKey{table: tableName, index: indexName}

	ifm.mu.Lock()
	btree, exists := ifm.indexes[key]
	if exists {
		delete(ifm.indexes, key)
	}
	ifm.mu.Unlock()

	if exists {
		if err := btree.Close(); err != nil {
			return fmt.Errorf("DropIndexFile: failed to close index '%s' for table '%s': %w", indexName, tableName, err)
		}
	}

	indexPath := ifm.path(tableName, indexName)
	if err := os.Remove(indexPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("DropIndexFile: failed to delete index file for '%s' on '%s': %w", indexName, tableName, err)
	}
	return nil
}

// CloseAll closes every cached index and clears the cache.
func (ifm *IndexFileManager) CloseAll() error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	var lastErr error
	for key, btree := range ifm.indexes {
		if err := btree.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close index '%s' for table '%s': %w", key.index, key.table, err)
		}
		delete(ifm.indexes, key)
	}

	return lastErr
}

// LoadIndex opens an existing index file and caches it; used during
// database initialization to preload every index of every open table.
func (ifm *IndexFileManager) LoadIndex(tableName, indexName string, indexFileID uint32) error {
	ifm.mu.Lock()
	defer ifm.mu.Unlock()

	key := indexKey{table: tableName, index: indexName}
	if _, exists := ifm.indexes[key]; exists {
		return nil
	}

	indexPath := ifm.path(tableName, indexName)
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return fmt.Errorf("index file for table '%s' index '%s' not found at %s", tableName, indexName, indexPath)
	}

	btree, err := bplus.OpenBPlusTree(indexPath, indexFileID, ifm.bufferPool, ifm.diskManager)
	if err != nil {
		return fmt.Errorf("failed to load index '%s' for table '%s': %w", indexName, tableName, err)
	}

	ifm.indexes[key] = btree
	return nil
}

// InsertEntry adds key→rid to the named index. A duplicate key is not an
// error: it is reported via the second return value so the caller
// (executors, undo replay) can treat it as a no-op rather than aborting the
// transaction, per the data-error/concurrency-error split — a duplicate key
// is a data condition, not a concurrency one.
func (ifm *IndexFileManager) InsertEntry(tableName, indexName string, key []byte, rid types.Rid) (duplicate bool, err error) {
	btree, err := ifm.lookupTree(tableName, indexName)
	if err != nil {
		return false, err
	}

	existing, serr := btree.Search(key)
	if serr != nil {
		return false, fmt.Errorf("search in index '%s' on '%s': %w", indexName, tableName, serr)
	}
	if existing != nil {
		return true, nil
	}

	value := make([]byte, 6)
	putRidValue(value, rid)
	if err := btree.Insertion(key, value); err != nil {
		return false, fmt.Errorf("insert into index '%s' on '%s': %w", indexName, tableName, err)
	}
	return false, nil
}

// DeleteEntry removes key from the named index. A missing key is a no-op,
// not an error — INDEX_ENTRY_NOT_FOUND is reserved for callers that need to
// distinguish the two; undo replay treats "already absent" as success.
func (ifm *IndexFileManager) DeleteEntry(tableName, indexName string, key []byte) error {
	btree, err := ifm.lookupTree(tableName, indexName)
	if err != nil {
		return err
	}
	if _, serr := btree.Search(key); serr != nil {
		return nil
	}
	if err := btree.Delete(key); err != nil {
		return fmt.Errorf("delete from index '%s' on '%s': %w", indexName, tableName, err)
	}
	return nil
}

// InsertEntryUndo is InsertEntry with the duplicate flag dropped, matching
// the txn package's IndexUndoer interface: undo replay never needs to
// distinguish "inserted" from "was already there".
func (ifm *IndexFileManager) InsertEntryUndo(tableName, indexName string, key []byte, rid types.Rid) error {
	_, err := ifm.InsertEntry(tableName, indexName, key, rid)
	return err
}

// LookupEntry resolves key to a Rid via the named index, or
// ErrIndexEntryNotFound if no such key exists.
func (ifm *IndexFileManager) LookupEntry(tableName, indexName string, key []byte) (types.Rid, error) {
	btree, err := ifm.lookupTree(tableName, indexName)
	if err != nil {
		return types.Rid{}, err
	}
	value, serr := btree.Search(key)
	if serr != nil || value == nil {
		return types.Rid{}, fmt.Errorf("lookup in index '%s' on '%s': %w", indexName, tableName, types.ErrIndexEntryNotFound)
	}
	return ridValue(value), nil
}

func (ifm *IndexFileManager) lookupTree(tableName, indexName string) (*bplus.BPlusTree, error) {
	ifm.mu.RLock()
	defer ifm.mu.RUnlock()
	btree, exists := ifm.indexes[indexKey{table: tableName, index: indexName}]
	if !exists {
		return nil, fmt.Errorf("index '%s' on table '%s' not open: %w", indexName, tableName, types.ErrIndexNotFound)
	}
	return btree, nil
}

// putRidValue/ridValue encode a types.Rid as the 6-byte value stored
// alongside an index key: 4 bytes page number, 2 bytes slot number.
func putRidValue(buf []byte, rid types.Rid) {
	buf[0] = byte(rid.PageNo >> 24)
	buf[1] = byte(rid.PageNo >> 16)
	buf[2] = byte(rid.PageNo >> 8)
	buf[3] = byte(rid.PageNo)
	buf[4] = byte(rid.SlotNo >> 8)
	buf[5] = byte(rid.SlotNo)
}

func ridValue(buf []byte) types.Rid {
	pageNo := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	slotNo := uint16(buf[4])<<8 | uint16(buf[5])
	return types.Rid{PageNo: pageNo, SlotNo: slotNo}
}
