package services

import (
	"fmt"
	"sync"

	"meishi-bot/internal/models"
)

// ScanStore mantém o registro atual de cada conversa.
type ScanStore struct {
	mu      sync.Mutex
	records map[string]models.ScanRecord
}

func NewScanStore() *ScanStore {
	return &ScanStore{records: make(map[string]models.ScanRecord)}
}

// Get devolve o registro vivo da conversa, criando-o vazio no primeiro uso.
// Para ler fora da goroutine dona da conversa, use Snapshot.
func (s *ScanStore) Get(conv string) models.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(conv)
}

func (s *ScanStore) getLocked(conv string) models.ScanRecord {
	r, ok := s.records[conv]
	if !ok {
		r = models.NewScanRecord()
		s.records[conv] = r
	}
	return r
}

// Merge só preenche campos que vieram não vazios na extração.
func (s *ScanStore) Merge(conv string, extracted models.ScanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.getLocked(conv)
	for _, f := range models.ScanFields {
		if v := extracted[f]; v != "" {
			r[f] = v
		}
	}
}

// SetField sobrescreve o valor, inclusive com string vazia.
func (s *ScanStore) SetField(conv, field, value string) error {
	if !models.IsScanField(field) {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getLocked(conv)[field] = value
	return nil
}

// Clear zera todos os campos no mesmo mapa.
func (s *ScanStore) Clear(conv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.getLocked(conv)
	for _, f := range models.ScanFields {
		r[f] = ""
	}
}

func (s *ScanStore) Snapshot(conv string) models.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(conv).Clone()
}
