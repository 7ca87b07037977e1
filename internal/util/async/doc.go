// Package async provides utilities for parallel task execution with
// error collection.
//
// The [Run] function executes independent read-only host queries
// concurrently and returns every error by task name.
package async
