// Package debuglog captures every language-model and generation-backend call
// as a timestamped JSON file under the project's llm/ folder, so prompt and
// payload history is inspectable after the fact.
package debuglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/paths"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

type Entry struct {
	Timestamp string         `json:"timestamp"`
	Kind      string         `json:"kind"`
	Endpoint  string         `json:"endpoint"`
	Request   any            `json:"request"`
	Response  any            `json:"response"`
	Meta      map[string]any `json:"meta,omitempty"`
}

type Recorder interface {
	// Record is best-effort: a failed debug write never fails the call it
	// documents.
	Record(state *domain.State, kind, endpoint string, request, response any, meta map[string]any)
}

type recorder struct {
	log   *logger.Logger
	paths paths.PathManager
}

func NewRecorder(log *logger.Logger, pm paths.PathManager) Recorder {
	return &recorder{
		log:   log.With("service", "DebugLog"),
		paths: pm,
	}
}

func (r *recorder) Record(state *domain.State, kind, endpoint string, request, response any, meta map[string]any) {
	if state == nil {
		return
	}
	dir, err := r.paths.LLMDir(state)
	if err != nil {
		r.log.Warn("Debug log dir unavailable", "error", err.Error())
		return
	}
	now := time.Now()
	entry := Entry{
		Timestamp: now.Format("2006-01-02T15:04:05"),
		Kind:      kind,
		Endpoint:  endpoint,
		Request:   request,
		Response:  response,
		Meta:      meta,
	}
	raw, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		r.log.Warn("Debug log encode failed", "kind", kind, "error", err.Error())
		return
	}
	name := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405.000"), kind)
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		r.log.Warn("Debug log write failed", "file", name, "error", err.Error())
	}
}
