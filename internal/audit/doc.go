// Package audit holds the audit event model and the sink implementations
// shared between the root dispatcher and public re-exports.
package audit
