package errors

import "fmt"

var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrAccountExists      = fmt.Errorf("account already exists")
	ErrUnknownAccount     = fmt.Errorf("unknown account")
	ErrPublicKeyRejected  = fmt.Errorf("public key not accepted")
)
