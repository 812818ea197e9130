// Package agent hosts a specialist agent process: a Specialist binds an
// identity (card, instruction text) and a capability set to the run loop
// engine, and a Server exposes it over the a2a wire protocol (card discovery,
// message/send, tasks/get, tasks/cancel, health).
//
// Specialists differ only in their card, instructions and registered
// capabilities; all control flow lives here and in runloop.
package agent
