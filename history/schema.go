package history

import memdb "github.com/hashicorp/go-memdb"

const (
	errorTableName = "error"
	spanTableName  = "span"
)

// newSideStore builds the go-memdb instance backing the error and
// span side-indexes: both tables are keyed by their own id and
// secondarily indexed by tick, so range queries over a tick window
// resolve via a single ordered scan instead of a linear filter.
func newSideStore() *memdb.MemDB {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			errorTableName: {
				Name: errorTableName,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"tick": {
						Name:    "tick",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "Tick"},
					},
				},
			},
			spanTableName: {
				Name: spanTableName,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "SpanID"},
					},
					"tick": {
						Name:    "tick",
						Unique:  false,
						Indexer: &memdb.IntFieldIndex{Field: "Tick"},
					},
					"trace": {
						Name:    "trace",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "TraceID"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		// The schema above is static and known-valid; a failure here
		// indicates a programming error, not a runtime condition.
		panic(err)
	}
	return db
}
