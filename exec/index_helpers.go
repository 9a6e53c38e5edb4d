package exec

import "DaemonDB/types"

// buildIndexKey forwards to the shared key-encoding helper so every DML
// executor builds index keys the same way the catalog's create_index
// backfill does.
func buildIndexKey(record []byte, schema []types.ColumnDef, idx types.IndexDef) ([]byte, error) {
	return types.BuildIndexKey(record, schema, idx)
}
