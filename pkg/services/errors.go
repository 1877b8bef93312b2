package services

// Error is a service failure with an HTTP status and a customer-facing
// detail message. Handlers surface Detail verbatim in the response body.
type Error struct {
	Code   int
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func NewError(code int, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}
