package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type HandlersRegistry struct {
	mux *asynq.ServeMux
}

// NewHandlersRegistry returns a registry whose handlers receive a task-scoped
// logger through the context (zerolog.Ctx).
func NewHandlersRegistry(log zerolog.Logger) *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(taskLogger(log))
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func taskLogger(log zerolog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			id, _ := asynq.GetTaskID(ctx)
			l := log.With().Str("task_type", t.Type()).Str("task_id", id).Logger()

			start := time.Now()
			err := next.ProcessTask(l.WithContext(ctx), t)

			ev := l.Info()
			if err != nil {
				ev = l.Error().Err(err)
			}
			ev.Dur("duration", time.Since(start)).Msg("task processed")
			return err
		})
	}
}
