// Package memory is an in-process document store used for development
// and tests. It can be seeded from a directory of JSON exports.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"financeiro/internal/store"
)

type Store struct {
	store.Hub

	mu       sync.RWMutex
	docs     map[string]map[string]json.RawMessage
	versions map[string]map[string]int64
}

func New() *Store {
	return &Store{
		docs:     map[string]map[string]json.RawMessage{},
		versions: map[string]map[string]int64{},
	}
}

// NewFromDir seeds a store from every {collection}.json file in dir. A
// file holds either an object keyed by id or an array of documents
// carrying an "id" field. A missing directory yields an empty store.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	if dir == "" {
		return s, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list seed files: %w", err)
	}
	for _, path := range files {
		collection := strings.TrimSuffix(filepath.Base(path), ".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
		records, err := decodeSeed(raw)
		if err != nil {
			return nil, fmt.Errorf("decode seed %s: %w", path, err)
		}
		for _, r := range records {
			s.put(collection, r.ID, r.Data)
		}
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return slices.Clone(doc), nil
}

func (s *Store) GetVersioned(_ context.Context, collection, id string) (json.RawMessage, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, 0, fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	return slices.Clone(doc), s.versions[collection][id], nil
}

func (s *Store) Set(_ context.Context, collection, id string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("%s/%s: invalid JSON document", collection, id)
	}
	version := s.put(collection, id, doc)
	s.Publish(store.Change{Collection: collection, ID: id, Op: store.OpSet, Version: version, Data: slices.Clone(doc)})
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.docs[collection][id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, store.ErrNotFound)
	}
	delete(s.docs[collection], id)
	s.versions[collection][id]++
	version := s.versions[collection][id]
	s.mu.Unlock()

	s.Publish(store.Change{Collection: collection, ID: id, Op: store.OpDelete, Version: version})
	return nil
}

func (s *Store) List(_ context.Context, collection string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Record, 0, len(s.docs[collection]))
	for id, doc := range s.docs[collection] {
		out = append(out, store.Record{ID: id, Data: slices.Clone(doc)})
	}
	slices.SortFunc(out, func(a, b store.Record) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) put(collection, id string, doc json.RawMessage) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[collection] == nil {
		s.docs[collection] = map[string]json.RawMessage{}
		s.versions[collection] = map[string]int64{}
	}
	s.docs[collection][id] = slices.Clone(doc)
	s.versions[collection][id]++
	return s.versions[collection][id]
}

func decodeSeed(raw []byte) ([]store.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '{' {
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byID); err != nil {
			return nil, err
		}
		out := make([]store.Record, 0, len(byID))
		for id, doc := range byID {
			out = append(out, store.Record{ID: id, Data: doc})
		}
		return out, nil
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	out := make([]store.Record, 0, len(docs))
	for i, doc := range docs {
		id, err := store.DocumentID(doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, store.Record{ID: id, Data: doc})
	}
	return out, nil
}
