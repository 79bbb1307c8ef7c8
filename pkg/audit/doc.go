// Package audit records security relevant decisions and mutations of the
// authorization core: ability denials, role assignment and role permission
// syncs, catalog provisioning, and RSVP transitions including waitlist
// promotions.
//
// Loggers are carried in the request context. Code that emits events calls
// FromContext, which falls back to a no-op logger, so auditing is optional:
//
//	ctx = audit.WithLogger(ctx, dbLogger)
//	audit.LogDenied(ctx, &userID, audit.ResourceTypeEvent, eventID.String(), "missing_permission")
//
// DBLogger persists to the audit_logs table; LogLogger writes each event as a
// structured log line; MultiLogger fans out to several loggers.
package audit
