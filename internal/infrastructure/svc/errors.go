package svc

import "errors"

// ErrMissingCredentials: Bybit API key or secret absent from the environment.
var ErrMissingCredentials = errors.New("bybit credentials missing (BYBIT_API_KEY / BYBIT_API_SECRET)")

// ErrStorageInitFailed: no storage backend could be brought up.
var ErrStorageInitFailed = errors.New("storage initialization failed")
