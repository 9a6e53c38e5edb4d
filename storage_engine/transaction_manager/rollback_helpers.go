package txn

import "DaemonDB/types"

/*
Executors append one WriteRec per row mutation, in the same order the
mutation happened: heap write, then index writes. Abort walks UndoList
back to front, so the most recent mutation is reversed first.
*/

// RecordInsert appends an undo entry for a freshly inserted row. Undoing it
// means deleting rid; touches lists every index entry the insert added so
// abort can remove them symmetrically.
func (txn *Transaction) RecordInsert(table string, fileID uint32, rid types.Rid, touches []IndexTouch) {
	txn.UndoList = append(txn.UndoList, WriteRec{
		Kind:         WriteInsert,
		Table:        table,
		FileID:       fileID,
		Rid:          rid,
		IndexTouches: touches,
	})
}

// RecordDelete appends an undo entry for a deleted row. Undoing it means
// reinserting beforeImage at the same rid; touches lists every index entry
// the delete removed so abort can restore them.
func (txn *Transaction) RecordDelete(table string, fileID uint32, rid types.Rid, beforeImage []byte, touches []IndexTouch) {
	txn.UndoList = append(txn.UndoList, WriteRec{
		Kind:         WriteDelete,
		Table:        table,
		FileID:       fileID,
		Rid:          rid,
		BeforeImage:  beforeImage,
		IndexTouches: touches,
	})
}

// RecordUpdate appends an undo entry for an updated row. Undoing it means
// overwriting rid with beforeImage; touches lists the index entries that
// changed (old key removed, new key added) so abort can swap them back.
func (txn *Transaction) RecordUpdate(table string, fileID uint32, rid types.Rid, beforeImage []byte, touches []IndexTouch) {
	txn.UndoList = append(txn.UndoList, WriteRec{
		Kind:         WriteUpdate,
		Table:        table,
		FileID:       fileID,
		Rid:          rid,
		BeforeImage:  beforeImage,
		IndexTouches: touches,
	})
}
