// Package notify contains the outbound sinks a discovery is relayed to:
// a chat webhook, a Pub/Sub topic, the process log, or memory for tests.
package notify
