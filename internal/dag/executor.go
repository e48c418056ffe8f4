package dag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/oskargrid/internal/config"
	"github.com/vk/oskargrid/internal/ctxlog"
	"github.com/vk/oskargrid/internal/registry"
)

// Executor runs a Graph with a fixed number of workers.
type Executor struct {
	Graph      *Graph
	numWorkers int
	registry   *registry.Registry
	converter  config.Converter
	wg         sync.WaitGroup
}

// NewExecutor creates a new executor for the given graph.
func NewExecutor(graph *Graph, numWorkers int, r *registry.Registry, converter config.Converter) *Executor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Executor{
		Graph:      graph,
		numWorkers: numWorkers,
		registry:   r,
		converter:  converter,
	}
}

// Run executes the entire graph concurrently and returns an error if any node fails.
// It respects the cancellation signal from the provided context.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if len(e.Graph.Nodes) == 0 {
		logger.Warn("Grid has no steps, nothing to execute.")
		return nil
	}

	readyChan := make(chan *Node, len(e.Graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootNodeCount := 0
	for _, id := range e.Graph.sortedIDs() {
		node := e.Graph.Nodes[id]
		if node.depCount.Load() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	logger.Info("Waiting for all nodes to complete...")
	e.wg.Wait()
	logger.Info("All nodes completed.")
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	var canceledErr error
	for _, id := range e.Graph.sortedIDs() {
		node := e.Graph.Nodes[id]
		if node.GetState() != Failed {
			continue
		}
		logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
		// A skip is a symptom, not a cause.
		if node.Error == nil || strings.HasPrefix(node.Error.Error(), "skipped") {
			continue
		}
		if errors.Is(node.Error, context.Canceled) && ctx.Err() == nil {
			continue
		}
		failedNodes = append(failedNodes, node.ID)
		if errors.Is(node.Error, context.Canceled) || errors.Is(node.Error, context.DeadlineExceeded) {
			if canceledErr == nil {
				canceledErr = node.Error
			}
			continue
		}
		if rootCauseError == nil {
			rootCauseError = node.Error
		}
	}
	if rootCauseError == nil {
		rootCauseError = canceledErr
	}

	if rootCauseError != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// skipDependents recursively marks all downstream nodes as failed and decrements the WaitGroup.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "nodeID", dependent.ID, "dependency", node.ID)
			dependent.State.Store(int32(Failed))
			dependent.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)
		nodeCtx := ctxlog.WithLogger(ctx, workerLogger)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				workerLogger.Warn("Context canceled, skipping node execution.")
				node.State.Store(int32(Failed))
				node.Error = ctx.Err()
				e.wg.Done()
				e.skipDependents(ctx, node)
			})
			continue
		}

		var err error
		node.skipOnce.Do(func() {
			workerLogger.Debug("Worker picked up node for execution.")
			node.State.Store(int32(Running))
			err = e.executeStepNode(nodeCtx, node)
			if err != nil {
				workerLogger.Error("Node execution failed.", "error", err)
				node.State.Store(int32(Failed))
				node.Error = err
				cancel()
				e.skipDependents(ctx, node)
				e.wg.Done()
				return
			}

			workerLogger.Debug("Node execution succeeded.")
			node.State.Store(int32(Done))
			for _, dependent := range node.Dependents {
				if dependent.depCount.Add(-1) == 0 {
					workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
					readyChan <- dependent
				}
			}
			e.wg.Done()
		})
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
