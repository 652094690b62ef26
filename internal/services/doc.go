// Package services provides cross-cutting helpers shared by pipeline stages:
// sentinel errors with a classification scheme the orchestrator uses to pick
// failure statuses, and context carriers for conversation, stage, and
// correlation identifiers used in structured logs.
package services
