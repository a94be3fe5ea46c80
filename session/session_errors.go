package session

import "errors"

// LoginCancelledErr is returned when the user declines the account-switch
// prompt; the existing session is left untouched.
var LoginCancelledErr = errors.New("login cancelled")
