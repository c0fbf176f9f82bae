package storage

import "fmt"

const (
	MemoryStoreKind  = "memory"
	SQLiteStoreKind  = "sqlite"
	DefaultStoreKind = MemoryStoreKind
)

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", MemoryStoreKind:
		return NewMemoryStore(), nil
	case SQLiteStoreKind:
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
