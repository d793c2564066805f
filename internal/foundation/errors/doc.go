// Package errors provides the classified error primitives used across assetbuilder.
//
// Errors carry a category (traversal, decode, cache, worker, ...), a severity
// and optional context. The build orchestrator uses the severity to decide
// whether a failure aborts the pass (fatal) or only skips one asset; the CLI
// adapter maps categories to process exit codes.
//
//	err := errors.WrapError(cause, errors.CategoryCache, "commit build cache").
//		Fatal().
//		WithContext("path", cachePath).
//		Build()
package errors
