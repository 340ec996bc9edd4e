// Package orchestrator drives the fixed, non-branching seven-step
// protocol sequence of spec 4.7. A and B are modeled as two logical
// roles within a single process rather than network peers: unlike the
// teacher's socket-based PSI handshake (internal/server/psi.go), the
// CLI contract here takes two local log files and a single output
// path, so there is no wire protocol to drive — only the data-flow
// discipline the spec requires each role to respect (B never touches
// the private key; A never inspects data B alone should see).
package orchestrator

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand/v2"
	"sync"

	"github.com/auroradata-ai/federated-dfg/internal/assembler"
	"github.com/auroradata-ai/federated-dfg/internal/codec"
	"github.com/auroradata-ai/federated-dfg/internal/dfg"
	"github.com/auroradata-ai/federated-dfg/internal/fhe"
	"github.com/auroradata-ai/federated-dfg/internal/logging"
	"github.com/auroradata-ai/federated-dfg/internal/merge"
	"github.com/auroradata-ai/federated-dfg/internal/model"
	"github.com/auroradata-ai/federated-dfg/internal/opcount"
	"github.com/auroradata-ai/federated-dfg/internal/psi"
	"github.com/auroradata-ai/federated-dfg/internal/tracestore"
)

// Options configures one protocol run (spec Section 6's tuning knob
// plus the PSI toggle the CLI exposes as a positional flag). Evaluator
// is constructed by the caller (cmd/federated-dfg), which alone decides
// whether to use the trivial debug backend or the production CKKS
// backend based on the CLI's debug_flag — that construction is pure
// wiring, not protocol logic.
type Options struct {
	Evaluator      fhe.Evaluator
	WindowSize     int
	WorkerPoolSize int
	UsePSI         bool
}

// Result is the outcome of a full run: the assembled DFG plus the
// summed homomorphic-operation counters (spec 4.5, cost measurement
// only, never interpreted by the protocol itself).
type Result struct {
	DFG      *dfg.DFG
	Counters opcount.Counters
}

// Run executes the fixed seven-step sequence against A's and B's event
// logs.
func Run(logA, logB []model.Case, opts Options) (*Result, error) {
	eval := opts.Evaluator

	// Step 1: key generation and evaluation-key publication happen
	// before Run is called (in cmd/federated-dfg, or by a test's fixture);
	// within a single process both logical roles already hold a
	// reference to the same Evaluator, which stands in for "B received
	// A's evaluation key".
	logging.Info("protocol run starting: %d A cases, %d B cases, psi=%v", len(logA), len(logB), opts.UsePSI)

	sharedIDs, psiCounters, err := runPSI(eval, logA, logB, opts.UsePSI)
	if err != nil {
		return nil, err
	}
	logging.Audit("psi_complete", map[string]interface{}{"shared_cases": len(sharedIDs)})

	table := codec.Build(codec.ActivitySet(logA), codec.ActivitySet(logB))
	samples := tracestore.BuildSampleEncryptions(eval, table)
	if err := tracestore.Validate(samples, table); err != nil {
		return nil, err
	}

	byIDA := make(map[string]model.Case, len(logA))
	for _, c := range logA {
		byIDA[c.CaseID] = c
	}
	byIDB := make(map[string]model.Case, len(logB))
	for _, c := range logB {
		byIDB[c.CaseID] = c
	}

	var (
		mu       sync.Mutex
		counters opcount.Counters
		allEdges []merge.Edge
		firstErr error
	)

	// The merge engine processes every case either side knows of as
	// shared: B's full case set (spec 4.7 step 6: "B iterates cases")
	// unioned with whichever of A's case IDs PSI confirmed are shared
	// (needed when PSI is disabled, where the shared set is A's full
	// case set regardless of whether B happens to hold a matching
	// case). Whichever side lacks a matching case contributes the
	// empty-side branch of the merge engine.
	mergeIDSet := make(map[string]struct{}, len(logB)+len(sharedIDs))
	for _, c := range logB {
		mergeIDSet[c.CaseID] = struct{}{}
	}
	for id := range sharedIDs {
		mergeIDSet[id] = struct{}{}
	}
	mergeIDs := make([]string, 0, len(mergeIDSet))
	for id := range mergeIDSet {
		mergeIDs = append(mergeIDs, id)
	}

	privateCases := make([]model.Case, 0, len(logA))
	for _, c := range logA {
		if !sharedIDs[c.CaseID] {
			privateCases = append(privateCases, c)
		}
	}

	order := shuffledIndices(len(mergeIDs))
	poolSize := opts.WorkerPoolSize
	if poolSize < 1 {
		poolSize = 1
	}

	window := opts.WindowSize
	if window < 1 {
		window = len(order)
		if window < 1 {
			window = 1
		}
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < poolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var local opcount.Counters
			var localEdges []merge.Edge
			var localErr error
			for idx := range work {
				caseID := mergeIDs[order[idx]]
				aCase, ok := byIDA[caseID]
				if !ok {
					aCase = model.Case{CaseID: caseID}
				}
				bCase, ok := byIDB[caseID]
				if !ok {
					bCase = model.Case{CaseID: caseID}
				}

				aTrace, err := tracestore.EncryptCase(eval, table, aCase)
				if err != nil {
					if localErr == nil {
						localErr = err
					}
					continue
				}
				bTrace, err := tracestore.EncodeCase(samples, table, bCase)
				if err != nil {
					if localErr == nil {
						localErr = err
					}
					continue
				}
				aTrace = tracestore.Sanitize(eval, table, aTrace)

				edges := merge.Case(eval, aTrace, bTrace, &local)
				localEdges = append(localEdges, edges...)
			}
			mu.Lock()
			counters.Add(local)
			allEdges = append(allEdges, localEdges...)
			if firstErr == nil {
				firstErr = localErr
			}
			mu.Unlock()
		}()
	}

	// B's merge driver submits work one window at a time rather than
	// draining the whole case list into the channel up front: this
	// bounds how many in-flight cases' ciphertexts the pool can be
	// holding at once and gives a natural point to report progress,
	// without changing which cases are ever processed.
	for start := 0; start < len(order); start += window {
		end := start + window
		if end > len(order) {
			end = len(order)
		}
		for i := start; i < end; i++ {
			work <- i
		}
		logging.Info("merge progress: %d/%d cases dispatched", end, len(order))
	}
	close(work)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	counters.Add(psiCounters)

	// Edges are already effectively shuffled by concurrent,
	// non-deterministic goroutine completion order and the case-order
	// shuffle above; this final pass (spec 4.5: "randomly shuffled
	// before leaving the component") removes any residual correlation
	// with submission order.
	shuffleEdges(allEdges)

	g := dfg.New()
	assembler.AddSharedEdges(eval, table, allEdges, g)
	for _, c := range privateCases {
		assembler.AddPrivateCase(g, c)
	}
	assembler.Finalize(g)

	logging.Info("protocol run complete: %d activities, %d edges", len(g.Activities), len(g.Edges))
	return &Result{DFG: g, Counters: counters}, nil
}

func runPSI(eval fhe.Evaluator, logA, logB []model.Case, usePSI bool) (map[string]bool, opcount.Counters, error) {
	shared := make(map[string]bool, len(logA))
	var counters opcount.Counters
	if !usePSI {
		for _, c := range logA {
			shared[c.CaseID] = true
		}
		return shared, counters, nil
	}

	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, counters, fmt.Errorf("generate psi key: %w", err)
	}

	aHashes := psi.HashCases(key, logA)
	bHashes := psi.HashCases(key, logB)
	encryptedA := psi.EncryptHashes(eval, aHashes)

	mask := psi.MatchMask(eval, encryptedA, bHashes, &counters)
	matches := psi.DecryptMask(eval, mask)

	for i, c := range logA {
		if matches[i] {
			shared[c.CaseID] = true
		}
	}
	return shared, counters, nil
}

func shuffledIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	mrand.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}

func shuffleEdges(edges []merge.Edge) {
	mrand.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
}
