package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mnemos/mnemos/pkg/memory"
)

// Key prefixes, one namespace per entity.
const (
	eventKeyPrefix   = "event:"
	recordKeyPrefix  = "record:"
	patternKeyPrefix = "pattern:"
	primingKeyPrefix = "priming:"
	runKeyPrefix     = "run:"
)

// BadgerStore is a Badger-backed Store. Values are JSON; each entity
// lives under its own key prefix.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger store at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already-open Badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *BadgerStore) get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return memory.ErrNotFound
	}
	return err
}

// scan visits every value under prefix, decoding into a fresh T per key.
func scan[T any](s *BadgerStore, prefix string, visit func(key string, value *T) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var value T
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			})
			if err != nil {
				return fmt.Errorf("storage: decode %s: %w", item.Key(), err)
			}
			if err := visit(string(item.Key()), &value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) PutEvent(ctx context.Context, event *memory.Event) error {
	return s.put(eventKeyPrefix+event.ID, event)
}

func (s *BadgerStore) GetEvent(ctx context.Context, id string) (*memory.Event, error) {
	var event memory.Event
	if err := s.get(eventKeyPrefix+id, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *BadgerStore) EventsByContext(ctx context.Context, context string, since time.Time) ([]*memory.Event, error) {
	var out []*memory.Event
	err := scan(s, eventKeyPrefix, func(_ string, event *memory.Event) error {
		if event.Context == context && !event.Timestamp.Before(since) {
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *BadgerStore) ContextsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	err := scan(s, eventKeyPrefix, func(_ string, event *memory.Event) error {
		if !event.Timestamp.Before(since) {
			counts[event.Context]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *BadgerStore) PutRecord(ctx context.Context, record *memory.MemoryRecord) error {
	return s.put(recordKeyPrefix+record.ID, record)
}

func (s *BadgerStore) GetRecord(ctx context.Context, id string) (*memory.MemoryRecord, error) {
	var record memory.MemoryRecord
	if err := s.get(recordKeyPrefix+id, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BadgerStore) ListRecords(ctx context.Context) ([]*memory.MemoryRecord, error) {
	var out []*memory.MemoryRecord
	err := scan(s, recordKeyPrefix, func(_ string, record *memory.MemoryRecord) error {
		out = append(out, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BadgerStore) ListRecordsByState(ctx context.Context, state memory.ConsolidationState) ([]*memory.MemoryRecord, error) {
	var out []*memory.MemoryRecord
	err := scan(s, recordKeyPrefix, func(_ string, record *memory.MemoryRecord) error {
		if record.State == state {
			out = append(out, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BadgerStore) DeleteRecord(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(recordKeyPrefix + id))
	})
}

func (s *BadgerStore) PutPattern(ctx context.Context, pattern *memory.Pattern) error {
	return s.put(patternKeyPrefix+pattern.ID, pattern)
}

func (s *BadgerStore) GetPattern(ctx context.Context, id string) (*memory.Pattern, error) {
	var pattern memory.Pattern
	if err := s.get(patternKeyPrefix+id, &pattern); err != nil {
		return nil, err
	}
	return &pattern, nil
}

func (s *BadgerStore) ListPatterns(ctx context.Context, status memory.PatternStatus) ([]*memory.Pattern, error) {
	var out []*memory.Pattern
	err := scan(s, patternKeyPrefix, func(_ string, pattern *memory.Pattern) error {
		if pattern.Status == status {
			out = append(out, pattern)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BadgerStore) DeletePattern(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(patternKeyPrefix + id))
	})
}

func primingKey(row memory.PrimingRecord) string {
	return primingKeyPrefix + row.MemoryID + ":" + row.Layer
}

func (s *BadgerStore) PutPriming(ctx context.Context, row memory.PrimingRecord) error {
	return s.put(primingKey(row), row)
}

func (s *BadgerStore) ListPriming(ctx context.Context) ([]memory.PrimingRecord, error) {
	var out []memory.PrimingRecord
	err := scan(s, primingKeyPrefix, func(_ string, row *memory.PrimingRecord) error {
		out = append(out, *row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MemoryID != out[j].MemoryID {
			return out[i].MemoryID < out[j].MemoryID
		}
		return out[i].Layer < out[j].Layer
	})
	return out, nil
}

func (s *BadgerStore) DeleteExpiredPriming(ctx context.Context, now time.Time) (int, error) {
	var expired []string
	err := scan(s, primingKeyPrefix, func(key string, row *memory.PrimingRecord) error {
		if row.Expired(now) {
			expired = append(expired, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range expired {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(expired), nil
}

func (s *BadgerStore) PutRun(ctx context.Context, run *memory.ConsolidationRun) error {
	return s.put(runKeyPrefix+run.Context+":"+run.ID, run)
}

func (s *BadgerStore) ListRuns(ctx context.Context, context string, limit int) ([]*memory.ConsolidationRun, error) {
	prefix := runKeyPrefix
	if context != "" {
		prefix += context + ":"
	}
	var out []*memory.ConsolidationRun
	err := scan(s, prefix, func(_ string, run *memory.ConsolidationRun) error {
		if context == "" || run.Context == context {
			out = append(out, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
