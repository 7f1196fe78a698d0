package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Типы фоновых задач.
const (
	TypeDeadlineSweep = "request:deadline:sweep"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Sweeper переводит заявки с истёкшим сроком подачи предложений в следующий статус.
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// DeadlineSweepPayload - полезная нагрузка задачи обхода сроков.
type DeadlineSweepPayload struct {
	Source      string    `json:"source"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// NewDeadlineSweepTask создает задачу обхода сроков.
func NewDeadlineSweepTask(source string, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(DeadlineSweepPayload{Source: source, ScheduledAt: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDeadlineSweep, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(3)), nil
}

// TaskProcessor обрабатывает фоновые задачи.
type TaskProcessor struct {
	sweeper Sweeper
	logger  *log.Logger
}

// NewTaskProcessor создает новый экземпляр TaskProcessor.
func NewTaskProcessor(sweeper Sweeper, logger *log.Logger) *TaskProcessor {
	return &TaskProcessor{sweeper: sweeper, logger: logger}
}

// HandleDeadlineSweepTask выполняет обход сроков. Ошибки отдельных заявок
// возвращаются, чтобы asynq повторил задачу.
func (p *TaskProcessor) HandleDeadlineSweepTask(ctx context.Context, t *asynq.Task) error {
	var payload DeadlineSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal deadline sweep payload: %v: %w", err, asynq.SkipRetry)
	}

	n, err := p.sweeper.ExpireOverdue(ctx)
	if n > 0 {
		p.logger.Printf("deadline sweep (%s): %d service requests moved", payload.Source, n)
	}
	if err != nil {
		return fmt.Errorf("deadline sweep: %w", err)
	}
	return nil
}

// Mux регистрирует обработчики задач.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDeadlineSweep, p.HandleDeadlineSweepTask)
	return mux
}

// RunLocal периодически выполняет обход сроков без Redis, пока ctx не отменён.
func (p *TaskProcessor) RunLocal(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			task, err := NewDeadlineSweepTask("local", at)
			if err != nil {
				p.logger.Println(err)
				continue
			}
			if err := p.HandleDeadlineSweepTask(ctx, task); err != nil {
				p.logger.Println(err)
			}
		}
	}
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// SetupServer настраивает сервер asynq. Запуск - через Start с p.Mux().
func SetupServer(rdb *redis.Client, logger *log.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Printf("task %s failed: %v", task.Type(), err)
			}),
		},
	)
}

// SetupScheduler регистрирует периодический обход сроков по расписанию cronspec.
func SetupScheduler(rdb *redis.Client, cronspec string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{Location: time.UTC})

	task, err := NewDeadlineSweepTask("scheduler", time.Time{})
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(cronspec, task); err != nil {
		return nil, fmt.Errorf("failed to register deadline sweep %q: %w", cronspec, err)
	}
	return scheduler, nil
}
