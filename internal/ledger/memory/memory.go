// Package memory is an in-process ledger store used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"botspese/internal/core"
)

type Store struct {
	mu         sync.Mutex
	partitions map[string][]core.LedgerRecord
	seq        int
	// FailWith, when set, makes every CreateRecord call fail.
	FailWith error
}

func New() *Store {
	return &Store{partitions: make(map[string][]core.LedgerRecord)}
}

// CreateRecord stores the record and returns a synthetic reference.
func (s *Store) CreateRecord(_ context.Context, partitionID string, rec core.LedgerRecord) (string, error) {
	if strings.TrimSpace(partitionID) == "" {
		return "", fmt.Errorf("empty partition id")
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return "", s.FailWith
	}
	s.partitions[partitionID] = append(s.partitions[partitionID], rec)
	s.seq++
	return fmt.Sprintf("mem:%s:%d", partitionID, s.seq), nil
}

// Records returns a copy of the records filed under partitionID, in write order.
func (s *Store) Records(partitionID string) []core.LedgerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LedgerRecord(nil), s.partitions[partitionID]...)
}

// Partitions lists the partition ids that received at least one record.
func (s *Store) Partitions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.partitions))
	for id := range s.partitions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the total number of records across partitions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
