// Package notifications delivers release outcomes via push notifications.
//
// The default implementation publishes to ntfy using the topic configured in
// the [notifications] section and degrades to a no-op when no topic is set.
// Notification failures never change a release outcome; callers log them at
// debug level and move on.
package notifications
