// Package prompt asks the operator yes/no and free-text questions.
//
// The upgrade pipeline depends only on the [Operator] interface, so it can
// be driven by a terminal form ([HuhOperator]), by fixed defaults for
// unattended runs ([DefaultsOperator]), or by a scripted responder in tests.
// Prompts have no timeout: an operator may stall a run indefinitely.
package prompt
