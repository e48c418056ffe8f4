package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/dag"
)

// Run builds the dependency graph and executes it. Each run is tagged with
// a fresh run_id in every log record.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.")

	if a.cfg.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	graph, err := dag.Build(ctx, a.model, a.registry)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	logger.Debug("Dependency graph built.", "node_count", len(graph.Nodes))

	if len(graph.Nodes) == 0 {
		logger.Warn("No nodes found in graph, execution not required.")
		return nil
	}

	logger.Info("🚀 Starting concurrent execution...", "steps", len(graph.Nodes), "workers", a.cfg.WorkerCount)
	exec := dag.NewExecutor(graph, a.cfg.WorkerCount, a.registry, a.converter)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	logger.Info("🏁 Execution finished.", "outputs", graph.Outputs())
	return nil
}
