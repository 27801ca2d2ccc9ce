// Package notify filters guardian recipients out of notification
// deliveries while a blackout covers the subject. Suppressed
// notifications are dropped, not queued: nothing may arrive late and
// reveal what the blackout hid.
package notify
