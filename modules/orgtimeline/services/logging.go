package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jacksonlee411/orgtimeline/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logger, ok := composables.UseLogger(ctx)
	if !ok {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}

func errorFields(err error, fields logrus.Fields) logrus.Fields {
	out := logrus.Fields{}
	for k, v := range fields {
		out[k] = v
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		out["error_code"] = svcErr.Code
		out["kind"] = string(svcErr.Kind)
		if svcErr.Status != 0 {
			out["status"] = svcErr.Status
		}
	}
	if err != nil {
		out["error"] = err.Error()
	}
	return out
}
