// Package costs prices every external call and keeps two ledgers: one inside
// each project state and one session-wide ledger persisted to sqlite so
// totals survive restarts.
package costs

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BXLSTNRD/FrePathe/internal/clients"
	"github.com/BXLSTNRD/FrePathe/internal/domain"
	"github.com/BXLSTNRD/FrePathe/internal/pkg/logger"
)

//go:embed pricing.yaml
var defaultPricingYAML []byte

type pricingFile struct {
	Prices  map[string]float64 `yaml:"prices"`
	Default float64            `yaml:"default"`
}

// SessionCall is one priced external call in the session ledger.
type SessionCall struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	Model     string  `json:"model"`
	Cost      float64 `json:"cost"`
	TS        float64 `json:"ts"`
	Note      string  `json:"note,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
}

type SessionCosts struct {
	Total float64       `json:"total"`
	Calls []SessionCall `json:"calls"`
}

type CostTracker interface {
	// Track prices a call, records it on the session ledger and, when state
	// is non-nil, on the project ledger. Returns the charged amount.
	Track(state *domain.State, model string, units int, note string) float64
	PriceFor(model string) float64
	Session() (*SessionCosts, error)
	ResetSession() error
	RefreshPricing(ctx context.Context) error
}

type costTracker struct {
	log *logger.Logger
	fal clients.FALClient
	db  *gorm.DB

	mu           sync.Mutex
	prices       map[string]float64
	defaultPrice float64
}

func NewCostTracker(log *logger.Logger, fal clients.FALClient, dbPath string) (CostTracker, error) {
	var pf pricingFile
	if err := yaml.Unmarshal(defaultPricingYAML, &pf); err != nil {
		return nil, fmt.Errorf("parse embedded pricing: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open cost ledger db: %w", err)
	}
	if err := db.AutoMigrate(&SessionCall{}); err != nil {
		return nil, fmt.Errorf("migrate cost ledger: %w", err)
	}
	return &costTracker{
		log:          log.With("service", "CostTracker"),
		fal:          fal,
		db:           db,
		prices:       pf.Prices,
		defaultPrice: pf.Default,
	}, nil
}

func (t *costTracker) PriceFor(model string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.prices[model]; ok {
		return p
	}
	return t.defaultPrice
}

func (t *costTracker) Track(state *domain.State, model string, units int, note string) float64 {
	if units < 1 {
		units = 1
	}
	cost := t.PriceFor(model) * float64(units)
	ts := float64(time.Now().UnixNano()) / float64(time.Second)

	projectID := ""
	if state != nil {
		projectID = state.Project.ID
		if state.Costs == nil {
			state.Costs = &domain.CostLedger{}
		}
		state.Costs.Add(domain.CostCall{Model: model, Cost: cost, TS: ts, Note: note})
	}

	call := SessionCall{Model: model, Cost: cost, TS: ts, Note: note, ProjectID: projectID}
	if err := t.db.Create(&call).Error; err != nil {
		t.log.Warn("Failed to persist session cost", "model", model, "error", err.Error())
	} else {
		t.pruneSession()
	}
	t.log.Debug("Cost tracked", "model", model, "units", units, "cost", cost, "note", note)
	return cost
}

// pruneSession keeps only the newest entries so the session ledger stays
// bounded.
func (t *costTracker) pruneSession() {
	var count int64
	if err := t.db.Model(&SessionCall{}).Count(&count).Error; err != nil {
		return
	}
	if count <= domain.SessionCallCap {
		return
	}
	var cutoff SessionCall
	if err := t.db.Order("id desc").Offset(domain.SessionCallCap - 1).First(&cutoff).Error; err != nil {
		return
	}
	t.db.Where("id < ?", cutoff.ID).Delete(&SessionCall{})
}

func (t *costTracker) Session() (*SessionCosts, error) {
	var calls []SessionCall
	if err := t.db.Order("id asc").Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("read session ledger: %w", err)
	}
	out := &SessionCosts{Calls: calls}
	for _, c := range calls {
		out.Total += c.Cost
	}
	return out, nil
}

func (t *costTracker) ResetSession() error {
	if err := t.db.Where("1 = 1").Delete(&SessionCall{}).Error; err != nil {
		return fmt.Errorf("reset session ledger: %w", err)
	}
	t.log.Info("Session cost ledger reset")
	return nil
}

// RefreshPricing merges live unit prices over the embedded defaults.
func (t *costTracker) RefreshPricing(ctx context.Context) error {
	if t.fal == nil {
		return nil
	}
	prices, err := t.fal.FetchPricing(ctx)
	if err != nil {
		return fmt.Errorf("fetch live pricing: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	updated := 0
	for _, p := range prices {
		t.prices[p.EndpointID] = p.UnitPrice
		updated++
	}
	t.log.Info("Live pricing refreshed", "models", updated)
	return nil
}
