package monitor

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"wealthflow/src/model"
)

const serviceName = "monitor"

// ExceptionStore persists captured failures.
type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// capture logs err and, when a store is configured, persists it with its context.
func (s *Scheduler) capture(ctx context.Context, module, method string, err error, contextData map[string]interface{}) {
	if err == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"module": module,
		"method": method,
	}).WithFields(contextData).WithError(err).Error("monitor check failed")

	if s.deps.Exceptions == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Service:   serviceName,
		Module:    module,
		Method:    method,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     "error",
		Context:   ctxJSON,
		CreatedAt: s.clock.Now(),
	}
	if e := s.deps.Exceptions.Create(ctx, exc); e != nil {
		s.logger.WithError(e).Warn("failed to persist exception")
	}
}
