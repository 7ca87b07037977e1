// Package docker drives the docker CLI: engine queries and the functional
// checks run after an upgrade, and the swarm membership operations used to
// drain and reactivate a node.
package docker
