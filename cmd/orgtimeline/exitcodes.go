package main

import (
	"errors"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK                = 0
	exitValidation        = 2
	exitUsage             = 3
	exitRemote            = 4
	exitParentUnavailable = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case services.KindValidation:
			return exitValidation
		case services.KindParentUnavailable:
			return exitParentUnavailable
		default:
			return exitRemote
		}
	}
	return 1
}

// userError renders err for stderr, keeping the server detail out of
// transport failures.
func userError(err error) string {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Code != "" {
			return svcErr.Code + ": " + services.UserMessage(err)
		}
		return services.UserMessage(err)
	}
	return err.Error()
}
