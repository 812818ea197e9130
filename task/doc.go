// Package task implements the task lifecycle state machine: submitted ->
// working -> exactly one of completed, failed or canceled.
//
// A Manager owns one task and enforces monotonic status transitions; every
// transition is delivered synchronously to subscribed listeners before the
// transition call returns, and Done() closes once the task is terminal. The
// Store is a volatile, concurrency-safe map of managers used by the agent
// server to answer tasks/get and tasks/cancel. Nothing here survives a
// process restart.
package task
