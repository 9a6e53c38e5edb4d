package heapfile

import "DaemonDB/types"

/*
Adapter methods satisfying txn.HeapUndoer: undo replay identifies rows by
(fileID, Rid) rather than by *RowPointer, and never carries an LSN (there is
no durable log for undo writes to participate in).
*/

// DeleteRowAt tombstones the row at rid — the undo of an insert.
func (hfm *HeapFileManager) DeleteRowAt(fileID uint32, rid types.Rid) error {
	rp := rid.WithFile(fileID)
	return hfm.DeleteRow(&rp, 0)
}

// InsertRowAt writes rowData back into the exact slot rid — the undo of a
// delete, where the row must reappear at the Rid any index entries still
// reference.
func (hfm *HeapFileManager) InsertRowAt(fileID uint32, rid types.Rid, rowData []byte) error {
	rp := rid.WithFile(fileID)
	return hfm.InsertRowAtPointer(fileID, &rp, rowData, 0)
}

// RestoreRow overwrites the row at rid with rowData — the undo of an
// update, restoring the before-image in place.
func (hfm *HeapFileManager) RestoreRow(fileID uint32, rid types.Rid, rowData []byte) error {
	rp := rid.WithFile(fileID)
	return hfm.UpdateRow(&rp, rowData, 0)
}
