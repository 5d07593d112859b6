package exec

import "errors"

var (
	ErrInvalidParameterIndex = errors.New("exec: invalid parameter index")
	ErrUnsupportedFeature    = errors.New("exec: unsupported feature")
)
