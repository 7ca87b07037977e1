// Package testing provides test utilities, builders, and fakes for unit and scenario tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - FakeRunner / MockRunner: scripted and testify-mocked command runners
//   - ScriptedOperator: queued answers for interactive prompts
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithRoot(t.TempDir()).
//	    WithStrategy(config.StrategyRepo).
//	    Build()
//
//	r := testing.NewFakeRunner().
//	    On("containerd --version", "containerd containerd.io 2.2.1 abc123\n")
package testing
