// Package ranking orders dispatch candidates by historical responsiveness.
package ranking

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/telecare/oncall/core/model"
)

const maxSamples = 50

type history struct {
	latencies []float64 // seconds, most recent last
	answers   int
	accepts   int
}

// LatencyRanker scores responders by how quickly and how often they accept
// invitations. Responders with no history score zero and are tried first.
// It implements both dispatch.CandidateRanker and dispatch.ResponseObserver.
type LatencyRanker struct {
	mu   sync.Mutex
	hist map[string]*history
}

// NewLatencyRanker creates an empty ranker.
func NewLatencyRanker() *LatencyRanker {
	return &LatencyRanker{hist: make(map[string]*history)}
}

// RecordResponse feeds one answered or expired invitation into the history.
func (r *LatencyRanker) RecordResponse(responderID string, latency time.Duration, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.hist[responderID]
	if h == nil {
		h = &history{}
		r.hist[responderID] = h
	}
	h.latencies = append(h.latencies, latency.Seconds())
	if len(h.latencies) > maxSamples {
		h.latencies = h.latencies[len(h.latencies)-maxSamples:]
	}
	h.answers++
	if accepted {
		h.accepts++
	}
}

// Order returns the candidates sorted by ascending score, preserving the
// directory order between candidates with equal scores.
func (r *LatencyRanker) Order(candidates []model.Responder) []model.Responder {
	r.mu.Lock()
	scores := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = r.score(c.ID)
	}
	r.mu.Unlock()

	out := append([]model.Responder(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i].ID] < scores[out[j].ID]
	})
	return out
}

// score blends mean response latency, its spread, and the decline rate.
// Lower is better. Caller holds r.mu.
func (r *LatencyRanker) score(responderID string) float64 {
	h := r.hist[responderID]
	if h == nil || h.answers == 0 {
		return 0
	}
	mean, std := stat.MeanStdDev(h.latencies, nil)
	if len(h.latencies) < 2 {
		std = 0
	}
	acceptRate := float64(h.accepts) / float64(h.answers)
	return (mean + std) * (2 - acceptRate)
}
