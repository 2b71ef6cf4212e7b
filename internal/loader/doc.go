// Package loader reads the raw indicator sources into tables keyed by
// (state, year).
//
// # Sources
//
// Each source is declared by a Schema: the file format (csv, tsv,
// whitespace separated text, xlsx), where the state and the year come from,
// the value columns and their types, row filters, an optional wide-to-long
// melt and an aggregate mode for rows that share a key.
//
// A value that cannot be read as its declared type, a declared column the
// file does not have, or a duplicate key under aggregate "none" fails the
// load with an *errors.FormatError naming the file and the 1-based row.
// Empty cells and placeholders such as NA or the BEA markers (D) and (NA)
// load as NaN unless the column is required.
//
// # Usage
//
//	states := loader.NewStateNormalizer(cfg.Verify.States, cfg.Verify.Aggregate)
//	l := loader.NewLoader(logger, states, metrics)
//	tables, err := l.LoadAll(ctx, paths, cfg.Sources)
//
// LoadFeatureTable reads back a feature table written by the exporter.
package loader
