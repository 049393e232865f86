// Package flow implements the graph model: structural mutations over a flow
// document (add/remove/duplicate/connect), keyword editing with stale-handle
// pruning, typed payload decoding, and serialization.
//
// All operations either fully apply or leave the flow untouched; structural
// violations are reported with the typed errors in pkg/domain.
package flow
