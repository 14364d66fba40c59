package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	reports     map[string][]byte
	order       []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.reports = make(map[string][]byte)
	s.order = nil
	return nil
}

// SaveReport stores an encoded copy of record so later mutation of the
// caller's report does not leak into the store.
func (s *MemoryStore) SaveReport(_ context.Context, record ReportRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return ErrMissingID
	}
	if record.SchemaVersion == 0 {
		record = Versioned(record)
	}
	payload, err := EncodeReport(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	if _, ok := s.reports[record.ID]; !ok {
		s.order = append(s.order, record.ID)
	}
	s.reports[record.ID] = payload
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id string) (ReportRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return ReportRecord{}, false, nil
	}
	record, err := DecodeReport(payload)
	if err != nil {
		return ReportRecord{}, false, err
	}
	return record, true, nil
}

func (s *MemoryStore) ListReports(_ context.Context) ([]ReportInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ReportInfo, 0, len(s.order))
	for _, id := range s.order {
		record, err := DecodeReport(s.reports[id])
		if err != nil {
			return nil, err
		}
		infos = append(infos, record.Info())
	}
	sortInfos(infos)
	return infos, nil
}
