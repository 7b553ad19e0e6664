package service

import "errors"

// Errors returned by the services. The HTTP layer maps each one to a Stitch
// error code.
var (
	ErrInvalidSession      = errors.New("invalid_session")
	ErrProviderNotFound    = errors.New("auth_provider_not_found")
	ErrInvalidPassword     = errors.New("invalid_password")
	ErrAccountNameInUse    = errors.New("account_name_in_use")
	ErrInvalidParameter    = errors.New("invalid_parameter")
	ErrMissingParameter    = errors.New("missing_parameter")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrIdentityLinked      = errors.New("identity_linked_to_other_user")
	ErrAPIKeyNotFound      = errors.New("api_key_not_found")
	ErrAPIKeyAlreadyExists = errors.New("api_key_already_exists")
	ErrFunctionNotFound    = errors.New("function_not_found")
	ErrFunctionExecution   = errors.New("function_execution_error")
	ErrArgumentsNotAllowed = errors.New("arguments_not_allowed")
)
