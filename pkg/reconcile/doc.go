// Package reconcile implements bulk record import with duplicate reconciliation.
//
// One invocation runs decode → normalize → index → classify → commit → report.
// The existing-record index is a snapshot taken once per invocation, so records
// inside the same batch are never compared with each other, only with what was
// already stored when the invocation started.
package reconcile
