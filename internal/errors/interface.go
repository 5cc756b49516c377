package errors

// ErrorCode identifies an error kind across packages. Packages declare
// their own codes next to the code that returns them.
type ErrorCode string

// Error is a coded error that can carry a wrapped cause or arbitrary data,
// typically the stderr text of a failed collaborator.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory defines methods for creating domain errors
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
