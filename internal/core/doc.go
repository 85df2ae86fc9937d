// Package core provides the cleaning pipeline for per-country GDP datasets.
//
// The package holds all domain logic independent of any UI or transport
// layer. It is used by the web server, the gdpclean CLI and tests without
// modification.
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Normalizer: [ParseFloatCell] and [NormalizeColumn] turn formatted
//     strings such as "$21,430,000,000,000" or "−0.27%" into numbers. Values
//     that cannot be parsed become absent, never zero.
//   - Pipeline: [Pipeline.Clean] parses delimited text, normalizes the
//     designated numeric columns and attaches a geo code to every row.
//   - Service: [Service] reads source files, memoizes cleaned datasets by
//     path and content fingerprint, and bounds concurrent uploads.
//   - Views: [MapView] and [TableView] project a [Dataset] into the rows a
//     choropleth map or a data table consumes.
//
// # Cleaning Flow
//
//  1. Caller invokes [Service.Load] with a path, or [Service.CleanUpload]
//     with a reader
//  2. The content is fingerprinted and looked up in the dataset cache
//  3. On a miss, the reader is wrapped with BOM skipping and UTF-8
//     sanitization and parsed into raw records
//  4. Each designated numeric column is normalized independently
//  5. Country names are resolved to ISO 3166-1 alpha-3 codes; aggregates
//     such as "World" stay unresolved
//  6. The resulting [Dataset] and its [Report] are stored and returned
//
// Cleaning is pure: the same content always yields an identical dataset.
//
// # Absent Values
//
// Absence is represented with pgtype.Float8, pgtype.Int8 and pgtype.Text
// with Valid set to false. They encode as JSON null.
//
// # Error Handling
//
// A source that cannot be read yields an empty dataset together with a
// [*SourceError]. Technical errors are mapped to user-friendly messages using
// [MapError]. Each category has a code for support reference:
//
//   - SRC001-SRC005: Source errors (missing, permission, size, format)
//   - FILE001-FILE004: Uploaded file errors
//   - UPL002-UPL005: Cleaning errors (busy, cancelled, timeout)
package core
