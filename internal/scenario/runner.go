package scenario

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/calibrant/scenex/internal/engine"
	"github.com/calibrant/scenex/internal/explore"
	"github.com/calibrant/scenex/internal/logging"
	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
	"github.com/calibrant/scenex/internal/tree"
)

// Runner executes scenarios against a real SQLite-backed store.
type Runner struct {
	t     *testing.T
	store *tree.SQLiteStore
}

// NewRunner creates a runner with an isolated SQLite store.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	s, err := tree.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return &Runner{t: t, store: s}
}

// Store exposes the underlying store for between-run inspection.
func (r *Runner) Store() tree.Store {
	return r.store
}

// Run executes the scenario end to end and returns the collected results.
func (r *Runner) Run(sc Scenario) Result {
	r.t.Helper()
	ctx := context.Background()

	client := propose.NewMockClient()
	if sc.Propose != nil {
		client.WithProposeFunc(sc.Propose)
	}

	scorer := sc.Scorer
	if scorer == nil {
		scorer = score.NewMonteCarloScorer()
	}

	logger := logging.NewLogger("error", io.Discard)
	eng := engine.New(r.store, client, scorer, logger, nil)
	ctrl := explore.New(r.store, eng, logger)

	baseline, err := space.NewConfiguration(sc.Baseline)
	if err != nil {
		r.t.Fatalf("scenario %s: baseline: %v", sc.Name, err)
	}
	outcome := sc.BaselineOutcome
	if outcome == nil {
		o, err := space.NewOutcome(0.25, 0.15, 0.60)
		if err != nil {
			r.t.Fatalf("scenario %s: baseline outcome: %v", sc.Name, err)
		}
		outcome = &o
	}
	sourceContext := sc.SourceContext
	if sourceContext == "" {
		sourceContext = sc.Name
	}

	exp, err := ctrl.StartExploration(ctx, explore.SourceConfig{
		Context:         sourceContext,
		Baseline:        baseline,
		BaselineOutcome: outcome,
	}, sc.Goal, sc.Config)
	if err != nil {
		r.t.Fatalf("scenario %s: StartExploration: %v", sc.Name, err)
	}

	if !exp.Status.IsTerminal() {
		exp, err = ctrl.RunToCompletion(ctx, exp.ID, sc.Sample)
		if err != nil && !errors.Is(err, explore.ErrTerminal) {
			r.t.Fatalf("scenario %s: RunToCompletion: %v", sc.Name, err)
		}
	}

	view, err := ctrl.GetTree(ctx, exp.ID)
	if err != nil {
		r.t.Fatalf("scenario %s: GetTree: %v", sc.Name, err)
	}
	path, err := ctrl.GetWinningPath(ctx, exp.ID)
	if err != nil {
		r.t.Fatalf("scenario %s: GetWinningPath: %v", sc.Name, err)
	}

	return Result{
		Exploration:  view.Exploration,
		Nodes:        view.Nodes,
		StatusCounts: view.StatusCounts,
		Path:         path,
		Calls:        client.CallCount(),
	}
}
