package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Configuration errors
	ErrConfigParse   ErrorType = "CONFIG_PARSE_ERROR"
	ErrConfigInvalid ErrorType = "CONFIG_INVALID_ERROR"
	ErrOverrides     ErrorType = "OVERRIDES_ERROR"

	// AWS errors
	ErrAWSClient   ErrorType = "AWS_CLIENT_ERROR"
	ErrEnumeration ErrorType = "ENUMERATION_ERROR"
	ErrResolution  ErrorType = "IMAGE_RESOLUTION_ERROR"

	// Output errors
	ErrRender ErrorType = "RENDER_ERROR"
	ErrOutput ErrorType = "OUTPUT_ERROR"
)

const (
	contextRegion  = "region"
	contextImageID = "image_id"
)

// CustomError represents a custom error with additional context
type CustomError struct {
	Type       ErrorType
	Message    string
	Context    map[string]interface{}
	WrappedErr error
}

// New creates a new custom error
func New(errorType ErrorType, message string, context map[string]interface{}, wrappedErr error) *CustomError {
	return &CustomError{
		Type:       errorType,
		Message:    message,
		Context:    context,
		WrappedErr: wrappedErr,
	}
}

// NewEnumerationError reports a failed instance listing for one region.
func NewEnumerationError(region string, wrappedErr error) *CustomError {
	return New(ErrEnumeration, fmt.Sprintf("listing instances in %s failed", region),
		map[string]interface{}{
			contextRegion: region,
		}, wrappedErr)
}

// NewResolutionError reports an image whose login user could not be resolved.
func NewResolutionError(imageID string, wrappedErr error) *CustomError {
	return New(ErrResolution, fmt.Sprintf("resolving login user for image %q failed", imageID),
		map[string]interface{}{
			contextImageID: imageID,
		}, wrappedErr)
}

// Error implements the error interface
func (e *CustomError) Error() string {
	if e.WrappedErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.WrappedErr)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *CustomError) Unwrap() error {
	return e.WrappedErr
}

// Is checks if the error chain holds a CustomError of a specific type
func Is(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	for err != nil {
		var customErr *CustomError
		if !stderrors.As(err, &customErr) {
			return false
		}
		if customErr.Type == errType {
			return true
		}
		err = customErr.WrappedErr
	}

	return false
}

// ImageID returns the image id carried by a resolution error in err's chain.
func ImageID(err error) (string, bool) {
	return contextString(err, ErrResolution, contextImageID)
}

// Region returns the region carried by an enumeration error in err's chain.
func Region(err error) (string, bool) {
	return contextString(err, ErrEnumeration, contextRegion)
}

func contextString(err error, errType ErrorType, key string) (string, bool) {
	for err != nil {
		var customErr *CustomError
		if !stderrors.As(err, &customErr) {
			return "", false
		}
		if customErr.Type == errType {
			v, ok := customErr.Context[key].(string)
			return v, ok
		}
		err = customErr.WrappedErr
	}
	return "", false
}
