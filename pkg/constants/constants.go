package constants

import (
	"github.com/go-playground/validator/v10"
)

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	RequestIDKey contextKey = "request_id"
)

// Validate is the shared struct validator for command inputs.
var Validate = validator.New()
