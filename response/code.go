package response

type ErrorCode int

const (
	OK ErrorCode = 0

	InvalidRequest ErrorCode = 40001
	InvalidToken   ErrorCode = 40101
	NotFound       ErrorCode = 40401
	Conflict       ErrorCode = 40901
	InternalError  ErrorCode = 50001

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
