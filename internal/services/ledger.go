package services

import (
	"context"
	"fmt"

	"meishi-bot/internal/models"

	"golang.org/x/sync/errgroup"
)

// Ledger é o destino append-only dos cartões confirmados.
type Ledger interface {
	Append(ctx context.Context, row models.LedgerRow) error
}

type namedLedger struct {
	name   string
	ledger Ledger
}

// MultiLedger grava em todos os destinos em paralelo; falha se algum falhar.
type MultiLedger struct {
	ledgers []namedLedger
}

func NewMultiLedger() *MultiLedger {
	return &MultiLedger{}
}

func (m *MultiLedger) Add(name string, l Ledger) *MultiLedger {
	m.ledgers = append(m.ledgers, namedLedger{name: name, ledger: l})
	return m
}

func (m *MultiLedger) Len() int {
	return len(m.ledgers)
}

func (m *MultiLedger) Append(ctx context.Context, row models.LedgerRow) error {
	// Sem WithContext: uma falha não cancela os outros destinos
	var eg errgroup.Group
	for _, nl := range m.ledgers {
		eg.Go(func() error {
			if err := nl.ledger.Append(ctx, row); err != nil {
				return fmt.Errorf("%s: %w", nl.name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
