// Package history keeps a local journal of submitted multisends so they can
// be listed and re-checked later.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"xchain-multisend/pkg/submit"
	"xchain-multisend/pkg/types"
)

const DefaultFileName = ".multisend-history.json"

var ErrNotFound = errors.New("transaction not found in history")

// Record is one submitted multisend
type Record struct {
	TxHash      common.Hash      `json:"tx_hash"`
	RelayID     common.Hash      `json:"relay_id"`
	SourceID    uint64           `json:"source_chain_id"`
	Source      string           `json:"source"`
	DestID      uint64           `json:"destination_chain_id"`
	Destination string           `json:"destination"`
	Amount      *big.Int         `json:"amount"` // per recipient, in wei
	Total       *big.Int         `json:"total"`
	Recipients  []common.Address `json:"recipients"`
	State       submit.TxState   `json:"state"`
	BlockNumber uint64           `json:"block_number,omitempty"`
	SentAt      time.Time        `json:"sent_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewRecord builds a pending record from a submitted intent
func NewRecord(intent *types.TransferIntent, result *submit.Result) *Record {
	now := time.Now().UTC()
	return &Record{
		TxHash:      result.TxHash,
		RelayID:     result.RelayID,
		SourceID:    intent.Source.ChainID,
		Source:      intent.Source.Name,
		DestID:      intent.Destination.ChainID,
		Destination: intent.Destination.Name,
		Amount:      intent.Amount,
		Total:       result.Value,
		Recipients:  intent.Recipients,
		State:       submit.TxPending,
		SentAt:      now,
		UpdatedAt:   now,
	}
}

type fileFormat struct {
	Records []*Record `json:"records"`
}

// Store persists records in a JSON file
type Store struct {
	filePath string
	mu       sync.RWMutex
	records  map[common.Hash]*Record
}

// NewStore opens the journal at filePath, or ~/.multisend-history.json when
// empty. A missing file is created on first write.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultFileName)
	}

	s := &Store{
		filePath: filePath,
		records:  make(map[common.Hash]*Record),
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}
	for _, r := range f.Records {
		s.records[r.TxHash] = r
	}
	return nil
}

// saveLocked writes the journal atomically; callers hold mu
func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(fileFormat{Records: s.sortedLocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Add stores a record, replacing one with the same hash
func (s *Store) Add(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[r.TxHash] = r
	return s.saveLocked()
}

// UpdateState records the latest known state of a transaction
func (s *Store) UpdateState(hash common.Hash, state submit.TxState, blockNumber uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[hash]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, hash.Hex())
	}
	if r.State == state && r.BlockNumber == blockNumber {
		return nil
	}

	r.State = state
	r.BlockNumber = blockNumber
	r.UpdatedAt = time.Now().UTC()
	return s.saveLocked()
}

func (s *Store) Get(hash common.Hash) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[hash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash.Hex())
	}
	return r, nil
}

// List returns all records, newest first
func (s *Store) List() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked()
}

// Pending returns the records whose outcome is not known yet
func (s *Store) Pending() []*Record {
	var out []*Record
	for _, r := range s.List() {
		if r.State == submit.TxPending || r.State == submit.TxUnknown {
			out = append(out, r)
		}
	}
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func (s *Store) FilePath() string {
	return s.filePath
}

func (s *Store) sortedLocked() []*Record {
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].TxHash.Hex() < out[j].TxHash.Hex()
		}
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out
}
