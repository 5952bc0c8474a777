// Package common contains shared constants and sentinel errors used across
// healthsync components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// IdempotencyKeyHeaderName is the gRPC metadata key that repeats the
// idempotency token of a create call, so proxies and logs can see it
// without decoding the request body.
const IdempotencyKeyHeaderName = "idempotency-key"
