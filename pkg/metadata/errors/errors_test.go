package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestThatSentinelsMatchWithErrorsIs(t *testing.T) {
	is := is.New(t)

	err := fmt.Errorf("convert failed: %w", NewTypeMismatchError("Person", "Asset"))

	is.True(errors.Is(err, ErrTypeMismatch))  // should match the wrapped sentinel
	is.True(!errors.Is(err, ErrUnknownType)) // should not match other sentinels
	is.Equal(HTTPStatus(err), http.StatusBadRequest)
}

func TestBeanConstructionErrorCarriesClassAndMethod(t *testing.T) {
	is := is.New(t)

	root := fmt.Errorf("constructor returned nil")
	err := NewBeanConstructionError("governance.Person", "Convert", root)

	is.True(errors.Is(err, ErrBeanConstruction))
	is.True(errors.Is(err, root)) // should unwrap to the root cause
	is.Equal(err.Error(), "unable to construct bean of class governance.Person in Convert: constructor returned nil")
	is.Equal(HTTPStatus(err), http.StatusInternalServerError)
}

func TestRecoverableErrors(t *testing.T) {
	is := is.New(t)

	is.True(IsRecoverable(NewUnmappableEnumValueError("status", "Mystery")))
	is.True(IsRecoverable(NewUnmappableMapValueError("additionalProperties", "nested")))
	is.True(!IsRecoverable(NewUnknownTypeError("Person")))
}

func TestFatalErrors(t *testing.T) {
	is := is.New(t)

	is.True(IsFatal(NewUnknownTypeError("Person")))
	is.True(IsFatal(NewBeanConstructionError("governance.Person", "Convert", nil)))
	is.True(!IsFatal(NewUnmappableValueError("rowCount", "many"))) // absorbed by the converter
	is.True(!IsFatal(nil))
}
