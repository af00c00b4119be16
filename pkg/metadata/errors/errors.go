package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrInvalidParameter = fmt.Errorf("invalid parameter")
var ErrTypeMismatch = fmt.Errorf("type mismatch")
var ErrUnknownType = fmt.Errorf("unknown type")
var ErrUnmappableEnumValue = fmt.Errorf("unmappable enum value")
var ErrUnmappableMapValue = fmt.Errorf("unmappable map value")
var ErrUnmappableValue = fmt.Errorf("unmappable value")
var ErrBeanConstruction = fmt.Errorf("bean construction failure")
var ErrInvalidInstance = fmt.Errorf("invalid instance")
var ErrAlreadyExists = fmt.Errorf("already exists")
var ErrNotFound = fmt.Errorf("not found")
var ErrClassificationExists = fmt.Errorf("classification already attached")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewInvalidParameterError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidParameter,
	}
}

func NewTypeMismatchError(expected, actual string) error {
	return &myError{
		msg:    fmt.Sprintf("expected an instance of type %q but got %q", expected, actual),
		target: ErrTypeMismatch,
	}
}

func NewUnknownTypeError(typeName string) error {
	return &myError{
		msg:    fmt.Sprintf("type %q is not known to the type registry", typeName),
		target: ErrUnknownType,
	}
}

func NewUnmappableEnumValueError(property, symbol string) error {
	return &myError{
		msg:    fmt.Sprintf("enum value %q of property %q could not be resolved", symbol, property),
		target: ErrUnmappableEnumValue,
	}
}

func NewUnmappableMapValueError(property, entry string) error {
	return &myError{
		msg:    fmt.Sprintf("entry %q of map property %q is not a string value", entry, property),
		target: ErrUnmappableMapValue,
	}
}

func NewUnmappableValueError(property string, value any) error {
	return &myError{
		msg:    fmt.Sprintf("value of type %T cannot be assigned to property %q", value, property),
		target: ErrUnmappableValue,
	}
}

func NewInvalidInstanceError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrInvalidInstance,
	}
}

func NewAlreadyExistsError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrAlreadyExists,
	}
}

func NewClassificationExistsError(name, guid string) error {
	return &myError{
		msg:    fmt.Sprintf("classification %s is already attached to %s", name, guid),
		target: ErrClassificationExists,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

// BeanConstructionError reports a failure to build a typed bean. It is a
// server side defect and carries the bean class and the failing method.
type BeanConstructionError struct {
	Class  string
	Method string
	Err    error
}

func NewBeanConstructionError(class, method string, err error) *BeanConstructionError {
	return &BeanConstructionError{
		Class:  class,
		Method: method,
		Err:    err,
	}
}

func (e *BeanConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to construct bean of class %s in %s", e.Class, e.Method)
	}
	return fmt.Sprintf("unable to construct bean of class %s in %s: %s", e.Class, e.Method, e.Err.Error())
}

func (e *BeanConstructionError) Is(target error) bool { return target == ErrBeanConstruction }
func (e *BeanConstructionError) Unwrap() error        { return e.Err }

// IsRecoverable reports if err describes an anomaly that the converter absorbs
// into the extra attribute bags instead of failing the conversion.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnmappableEnumValue) ||
		errors.Is(err, ErrUnmappableMapValue) ||
		errors.Is(err, ErrUnmappableValue)
}

// IsFatal reports if err must abort the operation that produced it
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}

// HTTPStatus maps an error to the response code used by the REST layers.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrClassificationExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrTypeMismatch),
		errors.Is(err, ErrUnknownType),
		errors.Is(err, ErrInvalidInstance):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
