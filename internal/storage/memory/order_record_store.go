// Package memory provides in-memory store implementations used in tests
// and single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-nft-indexer/internal/domain"
	"solana-nft-indexer/internal/storage"
)

// OrderRecordStore is an in-memory implementation of storage.OrderRecordStore.
type OrderRecordStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.OrderRecord
	byHouse map[string][]domain.OrderRecord
}

// NewOrderRecordStore creates a new in-memory order record store.
func NewOrderRecordStore() *OrderRecordStore {
	return &OrderRecordStore{
		byID:    make(map[string]domain.OrderRecord),
		byHouse: make(map[string][]domain.OrderRecord),
	}
}

// Insert appends a record. Returns ErrDuplicateKey if its RecordID exists.
func (s *OrderRecordStore) Insert(_ context.Context, r domain.OrderRecord) error {
	if r == nil || r.RecordID() == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(r)
}

// InsertBulk appends multiple records, skipping duplicates.
func (s *OrderRecordStore) InsertBulk(_ context.Context, records []domain.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.RecordID() == "" {
			return storage.ErrInvalidInput
		}
		if err := s.insertLocked(r); err != nil && err != storage.ErrDuplicateKey {
			return err
		}
	}
	return nil
}

func (s *OrderRecordStore) insertLocked(r domain.OrderRecord) error {
	id := r.RecordID()
	if _, exists := s.byID[id]; exists {
		return storage.ErrDuplicateKey
	}
	s.byID[id] = r
	house := r.AuctionHouseAddress()
	s.byHouse[house] = append(s.byHouse[house], r)
	return nil
}

// GetByAuctionHouse retrieves records of one auction house ordered by
// timestamp ASC, record id as tiebreaker.
func (s *OrderRecordStore) GetByAuctionHouse(_ context.Context, auctionHouse string) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.OrderRecord, len(s.byHouse[auctionHouse]))
	copy(records, s.byHouse[auctionHouse])

	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].RecordTimestamp(), records[j].RecordTimestamp()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return records[i].RecordID() < records[j].RecordID()
	})
	return records, nil
}

var _ storage.OrderRecordStore = (*OrderRecordStore)(nil)
