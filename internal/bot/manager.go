package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/nacionmx/unified-bot/internal/lib/job"
)

// Manager runs every configured instance. It is also the job.Notifier
// background jobs use to DM members.
type Manager struct {
	instances []*Instance
	logger    *zerolog.Logger
}

func NewManager(logger *zerolog.Logger, instances ...*Instance) *Manager {
	return &Manager{instances: instances, logger: logger}
}

// Start logs in every instance. An instance that cannot log in is reported
// and skipped so the others keep serving; Start fails only if none started.
func (m *Manager) Start(ctx context.Context) error {
	if len(m.instances) == 0 {
		return errors.New("no bot instances configured")
	}

	started := 0
	for _, inst := range m.instances {
		if err := inst.Start(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error().Err(err).Str("bot", inst.Name).Msg("bot failed to start")
			continue
		}
		started++
	}

	if started == 0 {
		return errors.New("no bot instance could log in")
	}
	m.logger.Info().Int("running", started).Int("configured", len(m.instances)).Msg("bots started")
	return nil
}

// Stop disconnects every instance.
func (m *Manager) Stop() {
	for _, inst := range m.instances {
		if err := inst.Stop(); err != nil {
			m.logger.Warn().Err(err).Str("bot", inst.Name).Msg("bot did not stop cleanly")
		}
	}
}

// Notify sends a DM through the first running instance.
func (m *Manager) Notify(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	for _, inst := range m.instances {
		if inst.Running() {
			return inst.Notify(ctx, userID, embed)
		}
	}
	return job.ErrNoNotifier
}

// Instance returns the instance with the given name.
func (m *Manager) Instance(name string) (*Instance, bool) {
	for _, inst := range m.instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return nil, false
}

func (m *Manager) Instances() []*Instance {
	return m.instances
}

func (m *Manager) Status() []InstanceStatus {
	out := make([]InstanceStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.Status())
	}
	return out
}
