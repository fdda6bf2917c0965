// Package core implements the inventory reconciliation pipeline.
//
// It ingests several CSV exports of IT-asset records, aligns them to one
// canonical schema, validates every record against a field grammar, resolves
// duplicate assets and hands the resulting datasets to a [Sink]. It is
// independent of any transport: the web server, the CLI and the directory
// watcher all drive it through [Pipeline.Run].
//
// # Stages
//
//   - Schema registry: [LoadSchema] reads the reference field list once.
//   - Field grammar: [NewGrammar] binds one [FieldRule] to every schema field.
//   - Row validator: [RowValidator.Validate] yields a [Verdict] with reasons.
//   - Source merger: [Merger.Merge] projects N sources onto the schema, at most
//     a row cap per source, skipping sources that fail to read.
//   - Partitioner: [Partitioner.Partition] splits records into valid and invalid.
//   - Duplicate resolver: [DuplicateResolver.Resolve] keeps the most complete
//     record per identity key and demotes the rest.
//
// Outputs are written with [WriteDataset], which always emits the header row.
//
// # Error Handling
//
// Validation failures are data, never errors. Operational errors are typed
// ([SchemaLoadError], [SourceReadError], [IdentityKeyError], [SinkError]) and
// mapped to coded user messages by [MapError].
package core
