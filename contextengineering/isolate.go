package contextengineering

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/jemygraw/agentflow/graph"
	"github.com/jemygraw/agentflow/log"
)

// isolateSpecialists runs one sub-agent per specialist concurrently. Each
// specialist only sees the topic and the compressed findings, never the full
// transcript, so their contexts stay isolated from each other.
func (w *workflow) isolateSpecialists(ctx context.Context, state graph.State) (any, error) {
	roundNum := round(state)
	findings := stringValue(state, "compressed_findings")
	researchTopic := topic(state)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports = make(map[string]string, len(w.cfg.Specialists))
	)

	for name, role := range w.cfg.Specialists {
		wg.Add(1)
		go func(name, role string) {
			defer wg.Done()

			prompt := fmt.Sprintf(`You are a %s specialist. Your job is to %s.

Research topic: %s
Compressed findings: %s

Provide an analysis report from your specialist perspective, focused on your area.`,
				name, role, researchTopic, findings)

			text, err := llms.GenerateFromSinglePrompt(ctx, w.cfg.Model, prompt)
			if err != nil {
				log.Warn("specialist %s failed: %v", name, err)
				text = fmt.Sprintf("Error: %v", err)
			}

			mu.Lock()
			reports[name] = text
			mu.Unlock()
		}(name, role)
	}
	wg.Wait()

	return graph.State{
		"specialist_reports": reports,
		"processing_steps":   fmt.Sprintf("round %d: ran %d isolated specialists", roundNum, len(reports)),
	}, nil
}
