package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajitpratap0/openclaw-graphrag/internal/graph"
	"github.com/ajitpratap0/openclaw-graphrag/internal/metrics"
	"github.com/ajitpratap0/openclaw-graphrag/internal/oracle"
	"github.com/ajitpratap0/openclaw-graphrag/pkg/textutil"
)

// ErrQueryExecutionFailed wraps backend errors raised while running a
// validated query.
var ErrQueryExecutionFailed = errors.New("query execution failed")

// State is a step of the graph question-answering state machine.
type State string

const (
	StateTranslating State = "translating"
	StateValidating  State = "validating"
	StateExecuting   State = "executing"
	StateAnswered    State = "answered"
	StateRejected    State = "rejected"
	StateFailed      State = "failed"
)

// Terminal reports whether s ends the state machine.
func (s State) Terminal() bool {
	return s == StateAnswered || s == StateRejected || s == StateFailed
}

// Path tags identify which answer path produced a result.
const (
	PathGraph  = "graph"
	PathVector = "vector"
)

// DefaultQueryTimeout bounds query execution when Options.QueryTimeout is zero.
const DefaultQueryTimeout = 30 * time.Second

// GraphResult is the outcome of one graph question. Exactly one of Records
// (Answered) or Err (Rejected, Failed) is meaningful.
type GraphResult struct {
	Path        string           `json:"path"`
	State       State            `json:"state"`
	Question    string           `json:"question"`
	Query       string           `json:"query,omitempty"`
	Records     []map[string]any `json:"records,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Transitions []State          `json:"transitions"`
	Err         error            `json:"-"`
}

// Options configures GraphQA.
type Options struct {
	AllowedKeywords []string
	QueryTimeout    time.Duration
}

// GraphQA translates a question to Cypher, validates it and runs it against
// the graph store.
type GraphQA struct {
	translator *Translator
	validator  *Validator
	store      graph.Store
	timeout    time.Duration
	logger     *slog.Logger
}

// NewGraphQA creates a GraphQA.
func NewGraphQA(o oracle.Oracle, store graph.Store, opts Options, logger *slog.Logger) *GraphQA {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphQA{
		translator: NewTranslator(o),
		validator:  NewValidator(opts.AllowedKeywords),
		store:      store,
		timeout:    opts.QueryTimeout,
		logger:     logger,
	}
}

// Run drives one question through Translating, Validating and Executing to
// a terminal state. It never returns an error; failures are carried in the
// result.
func (g *GraphQA) Run(ctx context.Context, question string) GraphResult {
	res := GraphResult{Path: PathGraph, Question: question}
	enter := func(s State) {
		res.State = s
		res.Transitions = append(res.Transitions, s)
		g.logger.Debug("qa: state", "state", s, "question", textutil.Preview(question, 80))
	}
	fail := func(s State, err error) GraphResult {
		enter(s)
		res.Err = err
		res.Reason = err.Error()
		switch s {
		case StateRejected:
			metrics.Inc(metrics.QueriesRejected)
		case StateFailed:
			metrics.Inc(metrics.QueriesFailed)
		}
		g.logger.Warn("qa: graph path did not answer", "state", s, "query", res.Query, "error", err)
		return res
	}

	enter(StateTranslating)
	query, err := g.translator.Translate(ctx, question)
	if err != nil {
		return fail(StateFailed, err)
	}
	res.Query = query

	enter(StateValidating)
	if err := g.validator.Validate(query); err != nil {
		return fail(StateRejected, err)
	}

	enter(StateExecuting)
	qctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	records, err := g.store.Query(qctx, query, nil)
	if err != nil {
		return fail(StateFailed, fmt.Errorf("%w: %w", ErrQueryExecutionFailed, err))
	}

	res.Records = records
	if res.Records == nil {
		res.Records = []map[string]any{}
	}
	enter(StateAnswered)
	metrics.Inc(metrics.QueriesAnswered)
	g.logger.Info("qa: graph path answered", "query", query, "records", len(records))
	return res
}
