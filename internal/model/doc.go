// Package model defines the data structures shared by the harvester, the
// database and the report writers.
//
// This package contains the following main types:
//   - Perfume: a harvested product record
//   - RunReport: the outcome of one harvesting run over a site
//   - Failure: one failed URL inside a run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, database, pipeline and report packages all need
// these types.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
