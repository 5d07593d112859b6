package planner

import "errors"

var errUnsupportedStatement = errors.New("planner: unsupported statement type")
