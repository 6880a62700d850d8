package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/corray333/backend-labs/foodorder/internal/service/models/catalog"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/order"
	"github.com/corray333/backend-labs/foodorder/internal/service/models/outbox"
)

// dataset is the whole store. It is also the snapshot file layout.
type dataset struct {
	Restaurants  []catalog.Restaurant   `json:"rest_list"`
	Orders       []order.Order          `json:"orders"`
	Outbox       []outbox.OutboxMessage `json:"outbox"`
	NextOutboxID int64                  `json:"next_outbox_id"`
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		Restaurants:  make([]catalog.Restaurant, len(d.Restaurants)),
		Orders:       make([]order.Order, len(d.Orders)),
		Outbox:       slices.Clone(d.Outbox),
		NextOutboxID: d.NextOutboxID,
	}
	for i, r := range d.Restaurants {
		c.Restaurants[i] = cloneRestaurant(r)
	}
	for i, o := range d.Orders {
		c.Orders[i] = cloneOrder(o)
	}

	return c
}

func cloneRestaurant(r catalog.Restaurant) catalog.Restaurant {
	r.Items = slices.Clone(r.Items)
	if r.Items == nil {
		r.Items = []catalog.Item{}
	}

	return r
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.EstimatedDeliveryTime != nil {
		eta := *o.EstimatedDeliveryTime
		o.EstimatedDeliveryTime = &eta
	}
	if o.SpecialInstructions != nil {
		note := *o.SpecialInstructions
		o.SpecialInstructions = &note
	}

	return o
}

// Store keeps the catalog, orders and outbox in memory. When a snapshot path is
// set, the whole store is rewritten to that file after every committed change.
type Store struct {
	mu   sync.RWMutex
	data *dataset
	path string
}

// NewStore creates a store, loading the snapshot at path if it exists.
// An empty path keeps the store purely in memory.
func NewStore(path string) (*Store, error) {
	s := &Store{
		data: &dataset{NextOutboxID: 1},
		path: path,
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, s.data); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if s.data.NextOutboxID == 0 {
		s.data.NextOutboxID = 1
	}

	return s, nil
}

// persistLocked writes the snapshot file. The caller holds the write lock.
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(s.data, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// access runs repository code against the dataset.
type access interface {
	read(fn func(d *dataset) error) error
	write(fn func(d *dataset) error) error
}

// direct locks the store for each call and commits writes on its own.
type direct struct {
	store *Store
}

func (a direct) read(fn func(d *dataset) error) error {
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()

	return fn(a.store.data)
}

func (a direct) write(fn func(d *dataset) error) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	before := a.store.data.clone()
	if err := fn(a.store.data); err != nil {
		a.store.data = before

		return err
	}
	if err := a.store.persistLocked(); err != nil {
		a.store.data = before

		return err
	}

	return nil
}

// held is used inside a unit of work, which already owns the write lock.
type held struct {
	store *Store
}

func (a held) read(fn func(d *dataset) error) error {
	return fn(a.store.data)
}

func (a held) write(fn func(d *dataset) error) error {
	return fn(a.store.data)
}
