package dag

import (
	"context"
	"fmt"

	"github.com/vk/pipeforge/internal/coverage"
	"github.com/vk/pipeforge/internal/ctxlog"
)

// executeAggregatorNode merges the coverage fragments of the aggregator's
// source jobs into one report and stores it as an artifact. If any source
// did not succeed, or succeeded without emitting a fragment, the
// aggregator fails without producing a partial merge.
func (e *Executor) executeAggregatorNode(ctx context.Context, node *Node) error {
	agg := node.Aggregator
	logger := ctxlog.FromContext(ctx).With("aggregator", node.ID)
	logger.Info("▶️ Merging coverage fragments", "sources", agg.Sources)

	var missing []string
	var fragments []*coverage.Fragment
	for _, src := range agg.Sources {
		srcNode, ok := e.Graph.Nodes[src]
		if !ok || srcNode.Status() != Succeeded {
			missing = append(missing, src)
			continue
		}
		frag, ok := e.fragments.Fragment(src)
		if !ok {
			missing = append(missing, src)
			continue
		}
		fragments = append(fragments, frag)
	}
	if len(missing) > 0 {
		return &AggregationError{Aggregator: node.ID, Missing: missing}
	}

	report := coverage.Merge(fragments)
	blob, err := report.Encode()
	if err != nil {
		return fmt.Errorf("encoding merged report: %w", err)
	}
	if err := e.services.Artifacts.Store(ctx, node.ID, agg.Output, blob); err != nil {
		return fmt.Errorf("storing merged report: %w", err)
	}

	logger.Info("✅ Coverage merged",
		"fragments", len(fragments), "files", report.TotalFiles, "lines", report.TotalLines)
	return nil
}
