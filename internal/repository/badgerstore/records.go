package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

// Records implements RecordRepository for one record kind. All records of
// one owner live in a single JSON list value, rewritten atomically inside a
// badger transaction. Each stored record carries a sequence number taken
// from a per-kind counter, so ListAll can return global insertion order
// instead of badger's lexical key order.
type Records[T model.Owned] struct {
	db     *badger.DB
	prefix []byte // "<kind>/"
	seqKey []byte // "<kind>!seq", outside the list prefix
}

var _ repository.RecordRepository[model.Report] = (*Records[model.Report])(nil)

// storedRecord is the on-disk shape of a record inside an owner list.
type storedRecord[T model.Owned] struct {
	Seq uint64 `json:"seq"`
	Rec T      `json:"rec"`
}

// NewRecords constructs the repository for the given kind tag
// (e.g. "classification", "report").
func NewRecords[T model.Owned](s *Store, kind string) *Records[T] {
	return &Records[T]{
		db:     s.db,
		prefix: []byte(kind + "/"),
		seqKey: []byte(kind + "!seq"),
	}
}

func (r *Records[T]) ownerKey(ownerID uuid.UUID) []byte {
	return append(append([]byte(nil), r.prefix...), ownerID.String()...)
}

// nextSeq bumps the kind's counter inside the caller's transaction.
func (r *Records[T]) nextSeq(txn *badger.Txn) (uint64, error) {
	var seq uint64
	item, err := txn.Get(r.seqKey)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence value %q", r.seqKey)
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	if err := txn.Set(r.seqKey, buf); err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *Records[T]) readList(txn *badger.Txn, key []byte) ([]storedRecord[T], error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []storedRecord[T]
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &list)
	}); err != nil {
		return nil, fmt.Errorf("decode record list %q: %w", key, err)
	}
	return list, nil
}

func (r *Records[T]) writeList(txn *badger.Txn, key []byte, list []storedRecord[T]) error {
	if len(list) == 0 {
		err := txn.Delete(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}

func unwrap[T model.Owned](list []storedRecord[T]) []T {
	if list == nil {
		return nil
	}
	out := make([]T, len(list))
	for i := range list {
		out[i] = list[i].Rec
	}
	return out
}

// Put appends the record to its owner's list, stamping the next sequence.
func (r *Records[T]) Put(ctx context.Context, rec T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := r.ownerKey(rec.Owner())
	return r.db.Update(func(txn *badger.Txn) error {
		list, err := r.readList(txn, key)
		if err != nil {
			return err
		}
		seq, err := r.nextSeq(txn)
		if err != nil {
			return err
		}
		return r.writeList(txn, key, append(list, storedRecord[T]{Seq: seq, Rec: rec}))
	})
}

// Replace rewrites the record in place, keeping its position and sequence.
func (r *Records[T]) Replace(ctx context.Context, rec T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := r.ownerKey(rec.Owner())
	return r.db.Update(func(txn *badger.Txn) error {
		list, err := r.readList(txn, key)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].Rec.Key() == rec.Key() {
				list[i].Rec = rec
				return r.writeList(txn, key, list)
			}
		}
		return errs.ErrNotFound
	})
}

// Get scans the kind's owner lists for the record id.
func (r *Records[T]) Get(ctx context.Context, id uuid.UUID) (T, error) {
	var (
		zero  T
		found T
		ok    bool
	)
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, func(list []storedRecord[T]) bool {
			for i := range list {
				if list[i].Rec.Key() == id {
					found, ok = list[i].Rec, true
					return false
				}
			}
			return true
		})
	})
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, errs.ErrNotFound
	}
	return found, nil
}

// Delete removes the record from whichever owner list holds it.
func (r *Records[T]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		var (
			key  []byte
			list []storedRecord[T]
			idx  = -1
		)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: r.prefix})
		defer it.Close()
		for it.Rewind(); it.Valid() && idx < 0; it.Next() {
			k := it.Item().KeyCopy(nil)
			l, err := r.readList(txn, k)
			if err != nil {
				return err
			}
			for i := range l {
				if l[i].Rec.Key() == id {
					key, list, idx = k, l, i
					break
				}
			}
		}
		if idx < 0 {
			return errs.ErrNotFound
		}
		list = append(list[:idx], list[idx+1:]...)
		return r.writeList(txn, key, list)
	})
}

// ListByOwner returns the owner's records in insertion order.
func (r *Records[T]) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []T
	err := r.db.View(func(txn *badger.Txn) error {
		list, err := r.readList(txn, r.ownerKey(ownerID))
		out = unwrap(list)
		return err
	})
	return out, err
}

// ListAll returns every record of the kind in global insertion order, the
// same order the relational backend yields.
func (r *Records[T]) ListAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var all []storedRecord[T]
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, func(list []storedRecord[T]) bool {
			all = append(all, list...)
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	return unwrap(all), nil
}

// PurgeOwner drops the owner's whole list.
func (r *Records[T]) PurgeOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	key := r.ownerKey(ownerID)
	err := r.db.Update(func(txn *badger.Txn) error {
		list, err := r.readList(txn, key)
		if err != nil {
			return err
		}
		n = len(list)
		return r.writeList(txn, key, nil)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// scan visits every owner list under the kind prefix until fn returns false.
// The counter key sorts before "<kind>/" and stays out of the iteration.
func (r *Records[T]) scan(txn *badger.Txn, fn func(list []storedRecord[T]) bool) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: r.prefix})
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		list, err := r.readList(txn, it.Item().KeyCopy(nil))
		if err != nil {
			return err
		}
		if !fn(list) {
			return nil
		}
	}
	return nil
}
