// Package selection implements greedy forward feature selection and the
// grid search that scores each candidate subset by k-fold cross-validation.
//
// The selector is driven by a ScoreFunc. Evaluator.GridScorer adapts a
// grid search into one, so a candidate subset is worth the score of its
// best hyperparameters.
//
// SplitTable holds rows out before any of this runs. An Evaluator is built
// over the training rows, and Holdout scores the held-out rows once.
package selection
