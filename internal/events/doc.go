// Package events decouples services from background task creation.
// Services emit TaskRequestEvent values through an EventEmitter without
// knowing which handlers will process them; handlers turn events into
// executable tasks.
package events
