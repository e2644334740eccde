// Package apperrors предоставляет структурированные ошибки приложения.
// Переименован из errors чтобы избежать конфликта со стандартной библиотекой.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Коды ошибок в иерархическом формате: CATEGORY.SPECIFIC_ERROR.
// Категория (часть до точки) определяет HTTP статус и код завершения CLI.
const (
	// Category: VALIDATION — входные данные отклонены до обращения к хранилищу.
	ErrEmptyName          = "VALIDATION.EMPTY_NAME"
	ErrNameTooLong        = "VALIDATION.NAME_TOO_LONG"
	ErrInvalidStatus      = "VALIDATION.INVALID_STATUS"
	ErrMalformedTimestamp = "VALIDATION.MALFORMED_TIMESTAMP"
	ErrEndBeforeStart     = "VALIDATION.END_BEFORE_START"
	ErrNegativeCount      = "VALIDATION.NEGATIVE_COUNT"
	ErrOutOfRange         = "VALIDATION.OUT_OF_RANGE"
	ErrMalformedPayload   = "VALIDATION.MALFORMED_PAYLOAD"

	// Category: STORAGE — хранилище недоступно или отклонило операцию.
	ErrStorageConnect = "STORAGE.CONNECT_FAILED"
	ErrStorageWrite   = "STORAGE.WRITE_FAILED"
	ErrStorageRead    = "STORAGE.READ_FAILED"
	ErrStorageMigrate = "STORAGE.MIGRATE_FAILED"

	// Category: PROVIDER — сбой источника системных метрик.
	// Наружу не пробрасывается: значение заменяется на 0.0.
	ErrProviderRead = "PROVIDER.READ_FAILED"

	// Category: CONFIG — ошибки загрузки и парсинга конфигурации.
	ErrConfigLoad     = "CONFIG.LOAD_FAILED"
	ErrConfigParse    = "CONFIG.PARSE_FAILED"
	ErrConfigValidate = "CONFIG.VALIDATION_FAILED"

	// Category: COMMAND — ошибки выполнения команд.
	ErrCommandNotFound = "COMMAND.NOT_FOUND"
	ErrCommandExec     = "COMMAND.EXEC_FAILED"

	// Category: OUTPUT — ошибки форматирования вывода.
	ErrOutputFormat = "OUTPUT.FORMAT_FAILED"
)

// Категории кодов ошибок.
const (
	CategoryValidation = "VALIDATION"
	CategoryStorage    = "STORAGE"
	CategoryProvider   = "PROVIDER"
	CategoryConfig     = "CONFIG"
	CategoryCommand    = "COMMAND"
	CategoryOutput     = "OUTPUT"
)

// AppError представляет структурированную ошибку приложения.
// Реализует error interface и поддерживает wrapping через Unwrap().
//
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты (пароли, DSN, токены).
//
//	return apperrors.NewAppError(apperrors.ErrStorageWrite,
//	    "не удалось сохранить запуск пайплайна", err)
type AppError struct {
	// Code — машиночитаемый код ошибки в формате CATEGORY.SPECIFIC.
	Code string `json:"code"`

	// Message — человекочитаемое описание ошибки.
	Message string `json:"message"`

	// Cause — исходная ошибка драйвера или провайдера.
	// Не сериализуется в JSON: может содержать детали подключения.
	Cause error `json:"-"`
}

// Error реализует интерфейс error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap возвращает wrapped ошибку для errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError создаёт новый AppError с заданным кодом, сообщением и причиной.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Validation создаёт ошибку валидации без причины.
func Validation(code, message string) *AppError {
	return NewAppError(code, message, nil)
}

// Storage оборачивает ошибку хранилища.
// Повторное оборачивание AppError той же категории не выполняется.
func Storage(code, message string, cause error) error {
	var appErr *AppError
	if errors.As(cause, &appErr) && categoryOf(appErr.Code) == CategoryStorage {
		return cause
	}
	return NewAppError(code, message, cause)
}

// Code возвращает код первой AppError в цепочке или пустую строку.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Category возвращает категорию кода ошибки (часть до первой точки).
// Для ошибок без AppError в цепочке возвращается пустая строка.
func Category(err error) string {
	return categoryOf(Code(err))
}

// IsValidation сообщает, отклонены ли входные данные.
func IsValidation(err error) bool {
	return Category(err) == CategoryValidation
}

// IsStorage сообщает, является ли ошибка сбоем хранилища.
func IsStorage(err error) bool {
	return Category(err) == CategoryStorage
}

func categoryOf(code string) string {
	category, _, found := strings.Cut(code, ".")
	if !found {
		return ""
	}
	return category
}

// Message возвращает сообщение первой AppError в цепочке без причины,
// иначе err.Error(). Используется для ответов клиентам.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
