// Package auth provides the shared-secret credential check.
// This package has NO dependencies on I/O or external packages.
package auth

import "strings"

// BearerPrefix is the scheme prefix stripped from the Authorization header.
const BearerPrefix = "Bearer "

// Source identifies where a credential was taken from.
type Source string

const (
	SourceNone   Source = "none"
	SourceHeader Source = "header"
	SourceQuery  Source = "query"
)

// Credential is the token presented by a caller. It lives only for the
// duration of the check and must never be logged.
type Credential struct {
	Token  string
	Source Source
}

// Reason explains a rejected credential.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonMissingToken Reason = "missing_token"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonSecretUnset  Reason = "secret_unset"
)

// Decision is the outcome of Authenticate.
type Decision struct {
	Authorized bool
	Reason     Reason
}

// ExtractCredential picks the caller's token. A non-empty Authorization
// header always wins over the query token, even when stripping the scheme
// leaves nothing.
// This is a PURE function.
func ExtractCredential(authorization, queryToken string) Credential {
	if authorization != "" {
		return Credential{
			Token:  strings.TrimPrefix(authorization, BearerPrefix),
			Source: SourceHeader,
		}
	}
	if queryToken != "" {
		return Credential{Token: queryToken, Source: SourceQuery}
	}
	return Credential{Source: SourceNone}
}

// Authenticate compares the credential with the configured secret.
// An unset secret rejects every caller.
// The comparison is ordinary string equality, not constant time.
// This is a PURE function.
func Authenticate(cred Credential, secret string) Decision {
	if secret == "" {
		return Decision{Reason: ReasonSecretUnset}
	}
	if cred.Token == "" {
		return Decision{Reason: ReasonMissingToken}
	}
	if cred.Token != secret {
		return Decision{Reason: ReasonInvalidToken}
	}
	return Decision{Authorized: true}
}
