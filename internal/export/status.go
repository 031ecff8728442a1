package export

import (
	"sync"

	"github.com/BXLSTNRD/FrePathe/internal/utils"
)

type StatusPhase string

const (
	StatusIdle       StatusPhase = "idle"
	StatusProcessing StatusPhase = "processing"
	StatusDone       StatusPhase = "done"
	StatusError      StatusPhase = "error"
)

type Status struct {
	Status    StatusPhase `json:"status"`
	Current   int         `json:"current"`
	Total     int         `json:"total"`
	Message   string      `json:"message"`
	UpdatedAt string      `json:"updated_at"`
}

// StatusStore publishes per-project export progress for polling. Purely
// in-memory: restarts reset every project to idle.
type StatusStore struct {
	mu      sync.Mutex
	entries map[string]Status
}

func NewStatusStore() *StatusStore {
	return &StatusStore{entries: map[string]Status{}}
}

func (s *StatusStore) Get(projectID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.entries[projectID]; ok {
		return st
	}
	return Status{Status: StatusIdle}
}

func (s *StatusStore) Set(projectID string, phase StatusPhase, current, total int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[projectID] = Status{
		Status:    phase,
		Current:   current,
		Total:     total,
		Message:   message,
		UpdatedAt: utils.NowISO(),
	}
}
