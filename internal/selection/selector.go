package selection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// State is an immutable snapshot of the search: the chosen subset, its
// score and the steps that built it. Advancing returns a new State.
type State struct {
	subset []string
	score  domain.Score
	steps  []domain.SelectionStep
}

// InitialState is the empty subset with an unattainable score.
func InitialState() State {
	return State{score: domain.Unattainable}
}

// Subset returns a copy of the selected features in selection order.
func (s State) Subset() []string { return append([]string{}, s.subset...) }

// Score returns the score of the current subset.
func (s State) Score() domain.Score { return s.score }

// Steps returns a copy of the accepted steps.
func (s State) Steps() []domain.SelectionStep { return append([]domain.SelectionStep(nil), s.steps...) }

// Len returns the subset size.
func (s State) Len() int { return len(s.subset) }

// Contains reports whether feature is selected.
func (s State) Contains(feature string) bool {
	for _, f := range s.subset {
		if f == feature {
			return true
		}
	}
	return false
}

func (s State) with(feature string, score domain.Score, candidates []domain.CandidateScore) State {
	subset := make([]string, len(s.subset)+1)
	copy(subset, s.subset)
	subset[len(s.subset)] = feature

	steps := make([]domain.SelectionStep, len(s.steps)+1)
	copy(steps, s.steps)
	steps[len(s.steps)] = domain.SelectionStep{
		Iteration:  len(s.steps) + 1,
		Feature:    feature,
		Subset:     append([]string(nil), subset...),
		Score:      score,
		Candidates: candidates,
	}
	return State{subset: subset, score: score, steps: steps}
}

// Selector runs greedy forward feature selection.
type Selector struct {
	family       string
	tolerance    float64
	maxFeatures  int
	onDegenerate string
	logger       *slog.Logger
	metrics      *infrastructure.AnalysisMetrics
}

// NewSelector creates a selector. family only labels logs and metrics.
func NewSelector(family domain.ModelFamily, analysis config.AnalysisConfig, logger *slog.Logger, metrics *infrastructure.AnalysisMetrics) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	onDegenerate := analysis.OnDegenerate
	if onDegenerate == "" {
		onDegenerate = PolicySkip
	}
	return &Selector{
		family:       string(family),
		tolerance:    analysis.Tolerance,
		maxFeatures:  analysis.MaxFeatures,
		onDegenerate: onDegenerate,
		logger:       infrastructure.WithComponent(logger, "selector").With(slog.String("family", string(family))),
		metrics:      metrics,
	}
}

// Outcome of one Step.
type Outcome struct {
	State      State
	Accepted   bool
	Feature    string
	Candidates []domain.CandidateScore
}

// Step scores every remaining pool feature added to the current subset and
// accepts the best one if it beats the current score by more than the
// tolerance. Ties keep the feature that comes first in pool order.
func (s *Selector) Step(ctx context.Context, state State, pool []string, score ScoreFunc) (Outcome, error) {
	out := Outcome{State: state}
	best := -1
	for _, feature := range pool {
		if state.Contains(feature) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		subset := append(state.Subset(), feature)
		sc, err := score(ctx, subset)
		cand := domain.CandidateScore{Feature: feature, Score: sc}
		if err != nil {
			if !apperrors.IsDegenerateFold(err) {
				return out, err
			}
			if s.onDegenerate == PolicyFail {
				return out, err
			}
			cand.Score = domain.Unattainable
			cand.Skipped = true
			cand.Reason = err.Error()
			s.logger.DebugContext(ctx, "candidate skipped",
				slog.String("feature", feature),
				slog.String("reason", cand.Reason))
		}
		s.metrics.RecordCandidate(ctx, s.family, cand.Skipped)
		out.Candidates = append(out.Candidates, cand)
		if cand.Score.Finite() && (best < 0 || cand.Score > out.Candidates[best].Score) {
			best = len(out.Candidates) - 1
		}
	}

	if best < 0 {
		return out, nil
	}
	winner := out.Candidates[best]
	if !improves(state.Score(), winner.Score, s.tolerance) {
		return out, nil
	}
	out.Accepted = true
	out.Feature = winner.Feature
	out.State = state.with(winner.Feature, winner.Score, out.Candidates)
	return out, nil
}

// Select grows a subset from pool until no candidate improves the score,
// the pool is exhausted or the configured feature limit is reached.
func (s *Selector) Select(ctx context.Context, pool []string, score ScoreFunc) (*domain.SelectionResult, error) {
	if err := checkPool(pool); err != nil {
		return nil, err
	}
	start := time.Now()
	state := InitialState()
	var final []domain.CandidateScore

	for state.Len() < len(pool) && (s.maxFeatures <= 0 || state.Len() < s.maxFeatures) {
		outcome, err := s.Step(ctx, state, pool, score)
		if err != nil {
			return nil, err
		}
		if !outcome.Accepted {
			final = outcome.Candidates
			break
		}
		state = outcome.State
		s.logger.InfoContext(ctx, "feature selected",
			slog.Int("iteration", state.Len()),
			slog.String("feature", outcome.Feature),
			slog.Float64("score", float64(state.Score())))
	}

	s.logger.InfoContext(ctx, "selection finished",
		slog.Any("subset", state.Subset()),
		slog.Float64("score", float64(state.Score())),
		slog.Duration("duration", time.Since(start)))

	return &domain.SelectionResult{
		Subset: state.Subset(),
		Score:  state.Score(),
		Steps:  state.Steps(),
		Final:  final,
	}, nil
}

// improves reports next > current + tolerance. Any finite score improves on
// an unattainable one.
func improves(current, next domain.Score, tolerance float64) bool {
	if !next.Finite() {
		return false
	}
	if !current.Finite() {
		return true
	}
	return float64(next)-float64(current) > tolerance
}

func checkPool(pool []string) error {
	if len(pool) == 0 {
		return apperrors.NewConfigError("candidate pool is empty", nil)
	}
	seen := make(map[string]bool, len(pool))
	for _, f := range pool {
		if seen[f] {
			return apperrors.NewConfigError(fmt.Sprintf("candidate %q listed twice", f), nil)
		}
		seen[f] = true
	}
	return nil
}
