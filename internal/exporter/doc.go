// Package exporter writes analysis artifacts to disk.
//
// CSVWriter is the shared CSV layer with an optional UTF-8 BOM for
// spreadsheet tools. FeatureExporter writes the feature table and the
// exclusion report on top of it. ReportExporter persists run and
// verification reports as JSON under reports/runs/<id>/, renders the text
// summary, and reads stored runs back for the report server.
package exporter
