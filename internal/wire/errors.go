package wire

// ErrorCode names a stable error identifier clients branch their retry
// behavior on. These are kinds, not Go type names: Connection, Game,
// Validation, System per the error taxonomy.
type ErrorCode string

const (
	// Connection
	ErrConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrAuthFailed        ErrorCode = "AUTH_FAILED"
	ErrRoomNotFound      ErrorCode = "ROOM_NOT_FOUND"
	ErrRoomFull          ErrorCode = "ROOM_FULL"
	ErrAlreadyInRoom     ErrorCode = "ALREADY_IN_ROOM"

	// Game
	ErrGameNotStarted      ErrorCode = "GAME_NOT_STARTED"
	ErrOutOfPhase          ErrorCode = "OUT_OF_PHASE"
	ErrNotYourTurn         ErrorCode = "NOT_YOUR_TURN"
	ErrInvalidPlay         ErrorCode = "INVALID_PLAY"
	ErrInvalidDeclaration  ErrorCode = "INVALID_DECLARATION"
	ErrAlreadyDeclared     ErrorCode = "ALREADY_DECLARED"
	ErrPiecesNotInHand     ErrorCode = "PIECES_NOT_IN_HAND"
	ErrPieceCountMismatch  ErrorCode = "PIECE_COUNT_MISMATCH"

	// Validation
	ErrInvalidMessageFormat ErrorCode = "INVALID_MESSAGE_FORMAT"
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrInvalidFieldType     ErrorCode = "INVALID_FIELD_TYPE"
	ErrOutOfRange           ErrorCode = "OUT_OF_RANGE"

	// System
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServerError    ErrorCode = "SERVER_ERROR"
	ErrVersionMismatch ErrorCode = "VERSION_MISMATCH"
)

// recoverableByDefault records which codes a client should retry without
// user intervention, absent a more specific override at the call site.
var recoverableByDefault = map[ErrorCode]bool{
	ErrRateLimited:    true,
	ErrConnectionFailed: true,
	ErrServerError:    false,
	ErrVersionMismatch: false,
}

// Error is the payload of an `error` frame: a stable code, a curated
// human-readable message, optional structured details, and whether the
// client should retry. Game and validation errors never mutate state and
// never broadcast; they are recovered locally to the offending connection.
type Error struct {
	Code        ErrorCode   `json:"code"`
	Message     string      `json:"message"`
	Details     interface{} `json:"details,omitempty"`
	Recoverable bool        `json:"recoverable"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewError builds an Error, defaulting Recoverable from recoverableByDefault
// when the code isn't in the override table (system errors are generally
// unrecoverable by a bare retry; everything else recoverable).
func NewError(code ErrorCode, message string, details interface{}) *Error {
	recoverable, known := recoverableByDefault[code]
	if !known {
		recoverable = true
	}
	return &Error{Code: code, Message: message, Details: details, Recoverable: recoverable}
}

// Frame wraps this Error as a ready-to-publish `error` frame.
func (e *Error) Frame() Frame {
	return NewFrame(EventError, e)
}
