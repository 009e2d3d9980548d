package insight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hearthkeep/hearthkeep/internal/common"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// DefaultDismissedRetention is how long dismissed insights are kept before
// the sweep removes them.
const DefaultDismissedRetention = 30 * 24 * time.Hour

// Manager handles user-driven insight state and retention.
type Manager struct {
	store     service.Storage
	logger    *slog.Logger
	now       func() time.Time
	retention time.Duration
}

// NewManager creates a lifecycle manager. A non-positive retention falls
// back to DefaultDismissedRetention.
func NewManager(store service.Storage, retention time.Duration, logger *slog.Logger) *Manager {
	if retention <= 0 {
		retention = DefaultDismissedRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, retention: retention, logger: logger, now: time.Now}
}

// Active returns the live insights, most urgent first.
func (m *Manager) Active(ctx context.Context) ([]model.Insight, error) {
	return m.store.GetActiveInsights(ctx)
}

// Overview returns the per-category document and insight counts.
func (m *Manager) Overview(ctx context.Context) ([]service.CategoryOverview, error) {
	return m.store.GetCategoryOverview(ctx)
}

// Dismiss hides an insight. Dismissing an already dismissed insight is a
// no-op, not an error; the user hit the same button twice.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	return m.setStatus(ctx, id, model.InsightDismissed)
}

// Resolve marks an insight as acted on.
func (m *Manager) Resolve(ctx context.Context, id string) error {
	return m.setStatus(ctx, id, model.InsightResolved)
}

// Reactivate undoes a dismiss or resolve.
func (m *Manager) Reactivate(ctx context.Context, id string) error {
	return m.setStatus(ctx, id, model.InsightActive)
}

func (m *Manager) setStatus(ctx context.Context, id string, target model.InsightStatus) error {
	insight, err := m.store.GetInsight(ctx, id)
	if err != nil {
		return err
	}
	if insight.Status == target {
		return nil
	}
	if !insight.CanTransition(target) {
		return fmt.Errorf("%w: %s to %s", common.ErrInvalidTransition, insight.Status, target)
	}

	var dismissedAt *time.Time
	if target == model.InsightDismissed {
		t := m.now().UTC()
		dismissedAt = &t
	}
	if err := m.store.SetInsightStatus(ctx, id, target, dismissedAt); err != nil {
		return err
	}

	m.logger.Info("insight status changed", "id", id, "from", insight.Status, "to", target)
	return nil
}

// Sweep deletes expired insights and dismissed insights past retention.
// Active unexpired and resolved insights are never touched.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	swept, err := m.store.SweepInsights(ctx, m.now().UTC(), m.retention)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		m.logger.Info("swept stale insights", "count", swept)
	}
	return swept, nil
}
