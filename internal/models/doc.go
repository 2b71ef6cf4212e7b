// Package models holds the estimators fitted during selection and
// evaluation: brute-force KNN, ordinary least squares and polynomial
// regression, plus the standard scaler, k-fold and train/test splitters
// and the R², MSE and accuracy metrics.
//
// Fitting conditions that make a split unusable (k above the training row
// count, a single class in a classification training split, constant test
// labels under R²) are returned as *errors.DegenerateFoldError so callers
// can apply their skip or fail policy.
package models
