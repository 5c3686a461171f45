package docindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/memoraapp/memora/internal/store"
)

// entity stores JSON values of type T under prefix+id, with optional unique
// secondary indexes at prefix+"idx:"+name+":"+key.
type entity[T any] struct {
	prefix  string
	indexes []index[T]
}

type index[T any] struct {
	name   string
	keyGen func(*T) []string
}

func newEntity[T any](prefix string) *entity[T] {
	return &entity[T]{prefix: prefix}
}

// withIndex adds a unique secondary index.
func (e *entity[T]) withIndex(name string, keyGen func(*T) []string) *entity[T] {
	e.indexes = append(e.indexes, index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// create writes a new value inside txn.
// Returns store.ErrAlreadyExists if the ID or any index key is taken.
func (e *entity[T]) create(txn *badger.Txn, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	_, err = txn.Get(e.key(id))
	if err == nil {
		return store.ErrAlreadyExists
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check existing key: %w", err)
	}

	for _, idx := range e.indexes {
		for _, k := range idx.keyGen(v) {
			_, err := txn.Get(e.indexKey(idx.name, k))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, k, store.ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index key: %w", err)
			}
		}
	}

	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	for _, idx := range e.indexes {
		for _, k := range idx.keyGen(v) {
			if err := txn.Set(e.indexKey(idx.name, k), []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	return nil
}

// get reads a value inside txn.
// Returns store.ErrNotFound if the value does not exist.
func (e *entity[T]) get(txn *badger.Txn, id string) (*T, error) {
	item, err := txn.Get(e.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}

	var v T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &v)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return &v, nil
}

// getByIndex resolves a secondary index key to its value.
func (e *entity[T]) getByIndex(txn *badger.Txn, name, value string) (*T, error) {
	item, err := txn.Get(e.indexKey(name, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return nil, err
	}
	return e.get(txn, id)
}

// delete removes a value and its index keys. It reports whether the value existed.
func (e *entity[T]) delete(txn *badger.Txn, id string) (bool, error) {
	v, err := e.get(txn, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for _, idx := range e.indexes {
		for _, k := range idx.keyGen(v) {
			if err := txn.Delete(e.indexKey(idx.name, k)); err != nil {
				return false, fmt.Errorf("delete index key: %w", err)
			}
		}
	}
	if err := txn.Delete(e.key(id)); err != nil {
		return false, fmt.Errorf("delete key: %w", err)
	}
	return true, nil
}

// list returns an iterator over all values, skipping index keys.
func (e *entity[T]) list(ctx context.Context, db *badger.DB) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return err
				}

				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var v T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &v)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&v, nil) {
					return nil
				}
			}
			return nil
		})
	}
}
