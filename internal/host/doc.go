// Package host isolates ambient process state (pid, environment
// variables, process liveness, detached process spawning) behind a small
// capability interface so components depending on it stay testable
// without touching real OS state.
package host
