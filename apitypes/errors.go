package apitypes

// ErrUnauthorized is the problem returned for a rejected password.
func ErrUnauthorized(detail string) *ApiError {
	return &ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}
