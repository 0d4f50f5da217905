// Package cache conserve les jeux nettoyés, indexés par l'empreinte des octets
// source : un même envoi n'est nettoyé qu'une fois.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"

	"retail-rfm/pkg/models"
)

// Store range les jeux nettoyés par identifiant.
type Store interface {
	Get(ctx context.Context, id string) (models.Dataset, bool, error)
	Put(ctx context.Context, ds models.Dataset) error
}

// Key : SHA-256 hexadécimal des octets, identifiant du jeu.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryStore garde au plus maxEntries jeux en mémoire ; les plus anciens
// (LoadedAt) sortent en premier.
type MemoryStore struct {
	mu         sync.RWMutex
	datasets   map[string]models.Dataset
	maxEntries int // 0 = illimité
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryStore{
		datasets:   make(map[string]models.Dataset),
		maxEntries: maxEntries,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Dataset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	return ds, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, ds models.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[ds.ID] = ds
	s.evictIfNeeded()
	return nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

// evictIfNeeded : verrou tenu par l'appelant.
func (s *MemoryStore) evictIfNeeded() {
	if s.maxEntries <= 0 || len(s.datasets) <= s.maxEntries {
		return
	}

	all := make([]models.Dataset, 0, len(s.datasets))
	for _, ds := range s.datasets {
		all = append(all, ds)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LoadedAt.Before(all[j].LoadedAt)
	})

	for i := 0; i < len(all)-s.maxEntries; i++ {
		slog.Info("evicting cached dataset", "dataset_id", all[i].ID, "loaded_at", all[i].LoadedAt)
		delete(s.datasets, all[i].ID)
	}
}
