package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "DECODE", ErrorTypeDecode.String())
	assert.Equal(t, "RENDER", ErrorTypeRender.String())
	assert.Equal(t, "VALIDATION", ErrorTypeValidation.String())
	assert.Equal(t, "UNKNOWN", ErrorType(99).String())
}

func TestPDFError_Message(t *testing.T) {
	cause := stderrors.New("xref table missing")
	err := NewDecodeError(cause)
	assert.Equal(t, "[DECODE] cannot open document: xref table missing", err.Error())
	assert.ErrorIs(t, err, cause)

	rerr := NewRenderError("cannot draw value", stderrors.New("rune 'Ω' not in encoding")).
		WithField("name", 2)
	assert.Equal(t, `[RENDER] cannot draw value (field "name", page 2): rune 'Ω' not in encoding`, rerr.Error())

	verr := NewValidationError("rect outside page").WithField("x", 0).WithContext("x=1.2")
	assert.Equal(t, `[VALIDATION] rect outside page (field "x"): x=1.2`, verr.Error())
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("fill failed: %w", NewRenderError("boom", nil))

	assert.True(t, IsRenderError(wrapped))
	assert.False(t, IsDecodeError(wrapped))
	assert.True(t, IsDecodeError(NewDecodeError(nil)))
	assert.True(t, IsValidationError(NewValidationError("bad")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(nil))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, ErrorTypeDecode.IsClientError())
	assert.True(t, ErrorTypeValidation.IsClientError())
	assert.False(t, ErrorTypeRender.IsClientError())
	assert.False(t, ErrorTypeUnknown.IsClientError())
}
