package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/internal/store"
	"github.com/MKhiriev/farm-sync/internal/utils"
	"github.com/MKhiriev/farm-sync/models"
)

const tempIDMapStorageKey = "temp_id_map"

// TempIDScheme issues placeholder identifiers for records created offline and
// tracks their resolution to real identifiers once the remote store assigns
// one. The mapping is persisted independently of the queue and survives
// restarts; entries are pruned by age, not by operation lifecycle.
type TempIDScheme struct {
	kv     store.KeyValue
	uuid   *utils.UUIDGenerator
	clock  Clock
	logger *logger.Logger

	mu      sync.RWMutex
	mapping map[models.TempID]string
}

// NewTempIDScheme constructs the scheme and loads any persisted mapping. A
// load failure is logged and the scheme starts empty; the engine keeps
// working in degraded mode.
func NewTempIDScheme(kv store.KeyValue, clock Clock, logger *logger.Logger) *TempIDScheme {
	s := &TempIDScheme{
		kv:      kv,
		uuid:    utils.NewUUIDGenerator(),
		clock:   clock,
		logger:  logger,
		mapping: make(map[models.TempID]string),
	}
	s.load()
	return s
}

func (s *TempIDScheme) load() {
	raw, err := s.kv.Load(context.Background(), tempIDMapStorageKey)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("cannot load temp id map, starting empty")
		}
		return
	}

	var stored map[models.TempID]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn().Err(err).Msg("cannot decode temp id map, starting empty")
		return
	}
	s.mapping = stored
}

func (s *TempIDScheme) persist(ctx context.Context) {
	raw, err := json.Marshal(s.mapping)
	if err != nil {
		s.logger.Err(err).Msg("cannot encode temp id map")
		return
	}
	if err := s.kv.Save(ctx, tempIDMapStorageKey, raw); err != nil {
		// Degraded mode: mapping lives in memory for this session only.
		s.logger.Warn().Err(err).Msg("cannot persist temp id map")
	}
}

// Generate issues a fresh temporary identifier embedding a millisecond
// timestamp and a random suffix: temp_<unix-ms>_<suffix>.
func (s *TempIDScheme) Generate() models.TempID {
	return models.TempID(fmt.Sprintf("%s%d_%s", models.TempIDPrefix, s.clock.Now().UnixMilli(), s.uuid.Suffix()))
}

// Resolve implements [Resolver]. Real identifiers pass through unchanged;
// temporary identifiers resolve through the recorded mapping or report
// ok=false when the create has not synced yet.
func (s *TempIDScheme) Resolve(id string) (string, bool) {
	if !models.IsTempID(id) {
		return id, true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	real, ok := s.mapping[models.TempID(id)]
	if !ok {
		return "", false
	}
	return real, true
}

// Record adds a tempID→realID mapping. A mapping is never remapped: a second
// Record for the same key with a different value indicates a protocol
// violation upstream and is logged, keeping the first value.
func (s *TempIDScheme) Record(ctx context.Context, tempID models.TempID, realID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mapping[tempID]; ok {
		if existing != realID {
			s.logger.Warn().
				Str("temp_id", tempID.String()).
				Str("existing", existing).
				Str("attempted", realID).
				Msg("refusing to remap temporary identifier")
		}
		return
	}

	s.mapping[tempID] = realID
	s.persist(ctx)
}

// Prune removes mappings whose embedded timestamp is older than maxAge and
// returns how many were dropped.
func (s *TempIDScheme) Prune(ctx context.Context, maxAge time.Duration) int {
	cutoff := s.clock.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for tempID := range s.mapping {
		issued, err := tempID.IssuedAt()
		if err != nil || issued.Before(cutoff) {
			delete(s.mapping, tempID)
			dropped++
		}
	}

	if dropped > 0 {
		s.persist(ctx)
	}
	return dropped
}

// Flush persists the current mapping; called on shutdown.
func (s *TempIDScheme) Flush(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.persist(ctx)
}

// Size returns the number of recorded mappings.
func (s *TempIDScheme) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mapping)
}
