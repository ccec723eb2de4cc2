package errs

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error category shared by services and commands.
type Code string

const (
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeCooldownActive    Code = "COOLDOWN_ACTIVE"
	CodeRateLimit         Code = "RATE_LIMIT"
	CodeInvalidPermission Code = "INVALID_PERMISSION"
	CodeRecordNotFound    Code = "RECORD_NOT_FOUND"
	CodeDuplicateEntry    Code = "DUPLICATE_ENTRY"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeAlreadyClaimed    Code = "ALREADY_CLAIMED"
	CodeAlreadyVoted      Code = "ALREADY_VOTED"
	CodeElectionClosed    Code = "ELECTION_CLOSED"
	CodeSelfTarget        Code = "SELF_TARGET"
	CodeTimeout           Code = "TIMEOUT"
	CodeDatabaseError     Code = "DATABASE_ERROR"
	CodeUnknown           Code = "UNKNOWN"
)

// GenericMessage is shown for any error that carries no user-facing message.
const GenericMessage = "Ocurrió un error inesperado. Por favor contacta a un administrador"

var defaultMessages = map[Code]string{
	CodeInsufficientFunds: "No tienes suficiente dinero para realizar esta operación",
	CodeInvalidAmount:     "El monto especificado no es válido",
	CodeInvalidInput:      "Los datos proporcionados no son válidos",
	CodeCooldownActive:    "Debes esperar antes de usar este comando de nuevo",
	CodeRateLimit:         "Estás haciendo esto demasiado rápido. Espera un momento",
	CodeInvalidPermission: "No tienes permiso para realizar esta acción",
	CodeRecordNotFound:    "No se encontró el registro solicitado",
	CodeDuplicateEntry:    "Este registro ya existe",
	CodeOutOfStock:        "No hay unidades disponibles de este vehículo",
	CodeAlreadyClaimed:    "Ya reclamaste esta recompensa",
	CodeAlreadyVoted:      "Ya votaste en esta elección",
	CodeElectionClosed:    "Esta elección ya está cerrada",
	CodeSelfTarget:        "No puedes realizar esta acción contigo mismo",
	CodeTimeout:           "La operación tardó demasiado. Intenta de nuevo",
	CodeDatabaseError:     "Error de base de datos. Intenta de nuevo en unos momentos",
	CodeUnknown:           GenericMessage,
}

// BotError is an error whose Message can be shown to a Discord user verbatim.
type BotError struct {
	Code    Code
	Message string
	Err     error
}

func (e *BotError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BotError) Unwrap() error {
	return e.Err
}

// Critical reports whether the error should be escalated to administrators.
func (e *BotError) Critical() bool {
	return e.Code == CodeDatabaseError || e.Code == CodeUnknown
}

// HTTPStatus maps the code onto the dashboard API's status codes.
func (e *BotError) HTTPStatus() int {
	switch e.Code {
	case CodeRecordNotFound:
		return http.StatusNotFound
	case CodeDuplicateEntry, CodeAlreadyVoted, CodeAlreadyClaimed:
		return http.StatusConflict
	case CodeInvalidPermission:
		return http.StatusForbidden
	case CodeRateLimit, CodeCooldownActive:
		return http.StatusTooManyRequests
	case CodeDatabaseError, CodeUnknown, CodeTimeout:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New returns a BotError with message, or the code's default message when empty.
func New(code Code, message string) *BotError {
	if message == "" {
		message = DefaultMessage(code)
	}
	return &BotError{Code: code, Message: message}
}

// Wrap attaches cause to a BotError.
func Wrap(code Code, err error, message string) *BotError {
	e := New(code, message)
	e.Err = err
	return e
}

// DefaultMessage returns the stock Spanish message for code.
func DefaultMessage(code Code) string {
	if msg, ok := defaultMessages[code]; ok {
		return msg
	}
	return GenericMessage
}

// AsBotError finds a BotError in err's chain.
func AsBotError(err error) (*BotError, bool) {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr, true
	}
	return nil, false
}

// CodeOf returns the code of the BotError in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if botErr, ok := AsBotError(err); ok {
		return botErr.Code
	}
	return CodeUnknown
}

// UserMessage resolves any error to the single message shown to the user.
// Errors that are not BotErrors never leak their text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if botErr, ok := AsBotError(err); ok && botErr.Message != "" {
		return botErr.Message
	}
	return GenericMessage
}
