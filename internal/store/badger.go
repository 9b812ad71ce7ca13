package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/openboard/relayq/pkg/models"
)

// BadgerStore implements Store on an embedded BadgerDB. It serves local and
// development deployments where no Redis is provisioned; entries are written
// with the same TTL semantics the Redis backend relies on.
type BadgerStore struct {
	db       *badger.DB
	indexCap int
}

// NewBadgerStore opens (creating if needed) a BadgerDB at path.
func NewBadgerStore(path string, indexCap int) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's logger interface does not speak slog
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, indexCap: indexCap}, nil
}

func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return ErrUnavailable
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) CreateJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ttl := recordTTL(job, time.Now())

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(JobKey(job.ID)), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}

		idxKey := []byte(SessionJobsKey(job.SessionID))
		ids, err := readIndex(txn, idxKey)
		if err != nil {
			return err
		}
		ids = append([]string{job.ID.String()}, ids...)
		if len(ids) > s.indexCap {
			ids = ids[:s.indexCap]
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(idxKey, raw).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *BadgerStore) UpdateJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ttl := recordTTL(job, time.Now())

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(JobKey(job.ID)), data).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *BadgerStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(JobKey(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &job, nil
}

func (s *BadgerStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Job, error) {
	jobs := []*models.Job{}
	err := s.db.View(func(txn *badger.Txn) error {
		ids, err := readIndex(txn, []byte(SessionJobsKey(sessionID)))
		if err != nil {
			return err
		}
		for _, raw := range ids {
			if len(jobs) >= limit {
				break
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			item, err := txn.Get([]byte(JobKey(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // expired since it was indexed
			}
			if err != nil {
				return err
			}
			var job models.Job
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				continue
			}
			jobs = append(jobs, &job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return jobs, nil
}

// IncrWithExpiry increments a counter key. The expiry is stamped when the
// counter is first created, giving fixed-window semantics.
func (s *BadgerStore) IncrWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	var count int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing bool
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			count = 0
		case err != nil:
			return err
		default:
			existing = true
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					count = int64(binary.BigEndian.Uint64(val))
				}
				return nil
			}); err != nil {
				return err
			}
		}

		count++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(count))
		entry := badger.NewEntry([]byte(key), buf)
		if existing {
			// keep the original window expiry
			entry = entry.WithTTL(time.Until(time.Unix(int64(item.ExpiresAt()), 0)))
		} else {
			entry = entry.WithTTL(window)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return count, nil
}

func readIndex(txn *badger.Txn, key []byte) ([]string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &ids)
	}); err != nil {
		return nil, err
	}
	return ids, nil
}
