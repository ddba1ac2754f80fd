// Package infer asks the oracle for a relationship label for every unordered
// pair of entities.
package infer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/models"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
)

// NoRelationship is the sentinel response meaning the pair has no link.
const NoRelationship = "NONE"

const (
	DefaultParallelism = 4
	DefaultPairTimeout = 30 * time.Second
)

// FailurePolicy decides what a failed pair leaves behind.
type FailurePolicy string

const (
	// FailurePolicySkip logs the failure and treats the pair as unrelated.
	FailurePolicySkip FailurePolicy = "skip"
	// FailurePolicyWarn also records a PairWarning in the Result.
	FailurePolicyWarn FailurePolicy = "warn"
)

// ParseFailurePolicy returns the policy named s, or false if unknown.
func ParseFailurePolicy(s string) (FailurePolicy, bool) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case FailurePolicySkip, "":
		return FailurePolicySkip, true
	case FailurePolicyWarn:
		return FailurePolicyWarn, true
	}
	return "", false
}

const relationshipPromptTemplate = `Suggest a relationship label (verb, uppercase, no spaces) that could connect:

A: %q [%s]
B: %q [%s]

Only respond with one label. If no clear link exists, respond with: NONE.`

// Pair is one unordered pair of entity indexes, I < J.
type Pair struct {
	I, J int
}

// PairWarning records a pair whose oracle call failed.
type PairWarning struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

// Result is the outcome of one Infer call.
type Result struct {
	Triples  []models.Triple `json:"triples"`
	Warnings []PairWarning   `json:"warnings,omitempty"`
}

// Options configures an Inferencer. Zero values select the defaults.
type Options struct {
	Parallelism int
	PairTimeout time.Duration
	Policy      FailurePolicy
}

// Inferencer fans pair prompts out to an oracle with bounded concurrency.
type Inferencer struct {
	oracle oracle.Oracle
	opts   Options
	logger *slog.Logger
}

// NewInferencer creates an Inferencer.
func NewInferencer(o oracle.Oracle, opts Options, logger *slog.Logger) *Inferencer {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.PairTimeout <= 0 {
		opts.PairTimeout = DefaultPairTimeout
	}
	if opts.Policy == "" {
		opts.Policy = FailurePolicySkip
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inferencer{oracle: o, opts: opts, logger: logger}
}

// Pairs enumerates all (i, j) with i < j < n in lexicographic order.
func Pairs(n int) []Pair {
	if n < 2 {
		return nil
	}
	out := make([]Pair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, Pair{I: i, J: j})
		}
	}
	return out
}

type pairOutcome struct {
	label string
	err   error
}

// Infer returns one triple per pair the oracle linked, in pair enumeration
// order. Individual pair failures never fail the call; only cancellation of
// ctx does.
func (inf *Inferencer) Infer(ctx context.Context, entities []models.Entity) (Result, error) {
	pairs := Pairs(len(entities))
	if len(pairs) == 0 {
		return Result{}, nil
	}

	outcomes := make([]pairOutcome, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(inf.opts.Parallelism)
	for idx, p := range pairs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			label, err := inf.ask(gctx, entities[p.I], entities[p.J])
			outcomes[idx] = pairOutcome{label: label, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("infer: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("infer: %w", err)
	}

	var res Result
	for idx, p := range pairs {
		a, b := entities[p.I], entities[p.J]
		out := outcomes[idx]
		if out.err != nil {
			metrics.Inc(metrics.PairsDropped)
			inf.logger.Warn("infer: pair failed", "source", a.Name, "target", b.Name, "error", out.err)
			if inf.opts.Policy == FailurePolicyWarn {
				res.Warnings = append(res.Warnings, PairWarning{Source: a.Name, Target: b.Name, Error: out.err.Error()})
			}
			continue
		}
		if out.label == "" || out.label == NoRelationship {
			continue
		}
		res.Triples = append(res.Triples, models.Triple{Source: a.Name, Label: out.label, Target: b.Name})
	}

	inf.logger.Info("infer: complete", "entities", len(entities), "pairs", len(pairs), "triples", len(res.Triples))
	return res, nil
}

func (inf *Inferencer) ask(ctx context.Context, a, b models.Entity) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, inf.opts.PairTimeout)
	defer cancel()

	prompt := fmt.Sprintf(relationshipPromptTemplate, a.Name, a.Type, b.Name, b.Type)
	resp, err := inf.oracle.Complete(callCtx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}
