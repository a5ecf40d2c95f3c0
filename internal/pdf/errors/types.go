package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// PDFError is the error returned by the field-injection engine. The Type tells
// the caller whether the input was at fault or the processing failed.
type PDFError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	PageNumber int       `json:"page_number,omitempty"`
	FieldKey   string    `json:"field_key,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Err        error     `json:"-"`
}

// ErrorType represents the categories of engine errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeDecode: the input bytes are not an openable PDF.
	ErrorTypeDecode
	// ErrorTypeRender: a field value could not be drawn, or the document
	// could not be serialized afterwards.
	ErrorTypeRender
	// ErrorTypeValidation: the request itself is malformed, or a template
	// failed strict geometry checks.
	ErrorTypeValidation
)

// Error implements the error interface
func (e *PDFError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.FieldKey != "" {
		msg += fmt.Sprintf(" (field %q", e.FieldKey)
		if e.PageNumber > 0 {
			msg += fmt.Sprintf(", page %d", e.PageNumber)
		}
		msg += ")"
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *PDFError) Unwrap() error {
	return e.Err
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeDecode:
		return "DECODE"
	case ErrorTypeRender:
		return "RENDER"
	case ErrorTypeValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// IsClientError reports whether errors of this type are caused by the
// caller's input rather than by processing.
func (et ErrorType) IsClientError() bool {
	return et == ErrorTypeDecode || et == ErrorTypeValidation
}

// NewPDFError creates a new PDFError
func NewPDFError(errorType ErrorType, message string) *PDFError {
	return &PDFError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps err as a PDFError of the given type
func WrapError(errorType ErrorType, message string, err error) *PDFError {
	return &PDFError{
		Type:      errorType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NewDecodeError reports input that cannot be opened as a PDF
func NewDecodeError(err error) *PDFError {
	return WrapError(ErrorTypeDecode, "cannot open document", err)
}

// NewRenderError reports a failure while drawing or serializing
func NewRenderError(message string, err error) *PDFError {
	return WrapError(ErrorTypeRender, message, err)
}

// NewValidationError reports a template that failed strict checks
func NewValidationError(message string) *PDFError {
	return NewPDFError(ErrorTypeValidation, message)
}

// WithContext adds context to an existing PDFError
func (e *PDFError) WithContext(context string) *PDFError {
	e.Context = context
	return e
}

// WithField attaches the offending field
func (e *PDFError) WithField(key string, pageNumber int) *PDFError {
	e.FieldKey = key
	e.PageNumber = pageNumber
	return e
}

// TypeOf returns the ErrorType carried by err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var pdfErr *PDFError
	if stderrors.As(err, &pdfErr) {
		return pdfErr.Type
	}
	return ErrorTypeUnknown
}

func IsDecodeError(err error) bool { return TypeOf(err) == ErrorTypeDecode }
func IsRenderError(err error) bool { return TypeOf(err) == ErrorTypeRender }
func IsValidationError(err error) bool { return TypeOf(err) == ErrorTypeValidation }
