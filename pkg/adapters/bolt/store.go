// Package bolt implements ports.ProcessStore on an embedded bbolt database.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/atsim/pkg/domain"
	"go.etcd.io/bbolt"
)

var (
	processBucket = []byte("processes")
	ownerBucket   = []byte("owners")
)

// Store implements ports.ProcessStore using bbolt.
//
// Processes are stored as JSON under their ID. A nested bucket per owner maps
// (created_at, id) to the ID so ListByOwner is a single ordered cursor scan.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open database, creating the buckets it needs.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(processBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(ownerBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func ownerKey(ownerID int64) []byte {
	return []byte(strconv.FormatInt(ownerID, 10))
}

func indexKey(p *domain.Process) []byte {
	k := make([]byte, 8, 8+len(p.ID))
	binary.BigEndian.PutUint64(k, uint64(p.CreatedAt.UnixMicro()))
	return append(k, p.ID...)
}

func decode(raw []byte) (*domain.Process, error) {
	var p domain.Process
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal process: %w", err)
	}
	return &p, nil
}

// Save persists the process.
func (s *Store) Save(ctx context.Context, p *domain.Process) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal process: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		procs := tx.Bucket(processBucket)
		owners := tx.Bucket(ownerBucket)

		if prev := procs.Get([]byte(p.ID)); prev != nil {
			old, err := decode(prev)
			if err != nil {
				return err
			}
			if idx := owners.Bucket(ownerKey(old.OwnerID)); idx != nil {
				if err := idx.Delete(indexKey(old)); err != nil {
					return err
				}
			}
		}

		idx, err := owners.CreateBucketIfNotExists(ownerKey(p.OwnerID))
		if err != nil {
			return err
		}
		if err := idx.Put(indexKey(p), []byte(p.ID)); err != nil {
			return err
		}
		return procs.Put([]byte(p.ID), data)
	})
}

// Load retrieves the process.
func (s *Store) Load(ctx context.Context, id string) (*domain.Process, error) {
	var p *domain.Process
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(processBucket).Get([]byte(id))
		if raw == nil {
			return domain.ErrNotFound
		}
		var err error
		p, err = decode(raw)
		return err
	})
	return p, err
}

// Delete removes the process and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		procs := tx.Bucket(processBucket)
		raw := procs.Get([]byte(id))
		if raw == nil {
			return nil
		}
		p, err := decode(raw)
		if err != nil {
			return err
		}
		if idx := tx.Bucket(ownerBucket).Bucket(ownerKey(p.OwnerID)); idx != nil {
			if err := idx.Delete(indexKey(p)); err != nil {
				return err
			}
		}
		return procs.Delete([]byte(id))
	})
}

// ListByOwner returns the owner's processes ordered by creation time.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Process, error) {
	out := make([]*domain.Process, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx := tx.Bucket(ownerBucket).Bucket(ownerKey(ownerID))
		if idx == nil {
			return nil
		}
		procs := tx.Bucket(processBucket)
		return idx.ForEach(func(_, id []byte) error {
			raw := procs.Get(id)
			if raw == nil {
				return nil
			}
			p, err := decode(raw)
			if err != nil {
				return err
			}
			out = append(out, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
