// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - You enqueue tasks (producer) using asynq.Client.
//   - A server runs workers that process those tasks (consumer) using asynq.Server.
//
// Without Redis the service runs inline: enqueueing a notice delivers it
// immediately on the caller's goroutine.
package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiken/asynq"
	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/rs/zerolog"
)

// ErrNoNotifier is returned when a notice is delivered before any bot
// instance is ready to send direct messages.
var ErrNoNotifier = errors.New("no notifier available")

// Notifier delivers a direct message to a Discord user.
type Notifier interface {
	Notify(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
}

// JobService holds the Asynq client (enqueue) and server (worker execution).
type JobService struct {
	// Client is nil when the service runs inline.
	Client *asynq.Client

	server   *asynq.Server
	logger   *zerolog.Logger
	notifier Notifier
}

// NewJobService creates a JobService configured to use Redis from cfg, or an
// inline service when Redis is not configured.
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	if !cfg.Redis.Enabled() {
		logger.Warn().Msg("redis not configured, background jobs run inline")
		return NewInlineJobService(logger)
	}

	opt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(opt)

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger:   asynqLogger{logger},
			LogLevel: asynq.WarnLevel,
		},
	)

	return &JobService{
		Client: client,
		server: server,
		logger: logger,
	}
}

// NewInlineJobService returns a JobService that never touches Redis.
func NewInlineJobService(logger *zerolog.Logger) *JobService {
	return &JobService{logger: logger}
}

// SetNotifier installs the delivery channel used by task handlers. It must
// be called before Start.
func (j *JobService) SetNotifier(n Notifier) {
	j.notifier = n
}

// Inline reports whether tasks are executed without a queue.
func (j *JobService) Inline() bool {
	return j.Client == nil
}

// Start registers task handlers and starts the worker server in the background.
func (j *JobService) Start() error {
	if j.server == nil {
		return nil
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPaymentReceipt, j.handlePaymentReceiptTask)
	mux.HandleFunc(TaskSanctionNotice, j.handleSanctionNoticeTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start job server: %w", err)
	}

	return nil
}

// Stop gracefully stops the job server and closes client resources.
func (j *JobService) Stop() {
	if j.server != nil {
		j.logger.Info().Msg("Stopping background job server")
		j.server.Shutdown()
	}
	if j.Client != nil {
		if err := j.Client.Close(); err != nil {
			j.logger.Warn().Err(err).Msg("failed to close job client")
		}
	}
}

// EnqueuePaymentReceipt schedules the receiver's receipt DM.
func (j *JobService) EnqueuePaymentReceipt(ctx context.Context, p PaymentReceiptPayload) error {
	if j.Inline() {
		return j.deliverPaymentReceipt(ctx, p)
	}

	task, err := NewPaymentReceiptTask(p)
	if err != nil {
		return fmt.Errorf("failed to build payment receipt task: %w", err)
	}
	return j.enqueue(ctx, task)
}

// EnqueueSanctionNotice schedules the sanctioned member's DM.
func (j *JobService) EnqueueSanctionNotice(ctx context.Context, p SanctionNoticePayload) error {
	if j.Inline() {
		return j.deliverSanctionNotice(ctx, p)
	}

	task, err := NewSanctionNoticeTask(p)
	if err != nil {
		return fmt.Errorf("failed to build sanction notice task: %w", err)
	}
	return j.enqueue(ctx, task)
}

func (j *JobService) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", task.Type(), err)
	}

	j.logger.Debug().
		Str("type", task.Type()).
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Msg("task enqueued")
	return nil
}

// asynqLogger routes asynq's internal logs through zerolog.
type asynqLogger struct {
	logger *zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
