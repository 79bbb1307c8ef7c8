// Package httputil provides the JSON response helpers, path parsing and
// middleware shared by the HTTP adapters of the authorization core.
//
// Denied ability decisions are written with their reason so clients can
// tell "log in" apart from "RSVPs are closed":
//
//	httputil.WriteDenied(w, http.StatusForbidden, "rsvp_closed", "create-rsvp")
//	// {"error":"forbidden","reason":"rsvp_closed","permission":"create-rsvp"}
//
// Middleware compose with Chain:
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)(router)
package httputil
