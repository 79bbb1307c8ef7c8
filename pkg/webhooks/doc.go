// Package webhooks delivers signed JSON notifications over HTTP.
//
// # Overview
//
// A Sender POSTs a payload to an Endpoint, signing the body with
// HMAC-SHA256 when the endpoint has a secret, and retries transient failures
// with exponential backoff.
//
//	sender := webhooks.NewSender(nil, webhooks.NewRetryPolicy(webhooks.DefaultRetryConfig()))
//	attempts, err := sender.Send(ctx, webhooks.Endpoint{URL: url, Secret: secret},
//		"rsvp.promoted", promotion.RSVPID.String(), promotion)
//
// # Headers
//
//	Content-Type:            application/json
//	X-Frontendmu-Event:      event name, e.g. rsvp.promoted
//	X-Frontendmu-Delivery:   delivery id, stable across retries
//	X-Frontendmu-Signature:  sha256=<hex HMAC of the body>, when a secret is set
//
// Receivers check the signature with VerifySignature.
//
// # Retries
//
// Network errors, 429 and 5xx responses are retried up to MaxAttempts. Other
// 4xx responses are permanent and returned immediately.
package webhooks
