package store

import "errors"

// ErrAuthCodeAlreadyUsed is returned by MarkAuthorizationCodeUsed when the
// code was already consumed by a concurrent request (0 rows updated).
var ErrAuthCodeAlreadyUsed = errors.New("authorization code already used")
