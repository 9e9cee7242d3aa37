// Package notifications pushes workflow milestones to the operator's phone or
// desktop through ntfy.
//
// Service is the only surface workflow code sees. The ntfy implementation
// posts to the configured topic and each event class (queue started, item
// complete, review needed, errors) can be muted in the [notifications] config
// section; when no topic is set the whole service degrades to a no-op.
// Alternative transports belong here too, behind the same interface.
package notifications
