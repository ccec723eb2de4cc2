package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nacionmx/unified-bot/internal/command"
	"github.com/nacionmx/unified-bot/internal/config"
	"github.com/nacionmx/unified-bot/internal/lib/job"
	"github.com/nacionmx/unified-bot/internal/service"
	"github.com/nacionmx/unified-bot/internal/testutil"
)

func newServices(t *testing.T) *service.Services {
	t.Helper()
	log := zerolog.Nop()
	mem := testutil.NewMemory()
	jobs := job.NewInlineJobService(&log)
	economy, err := service.NewEconomyService(mem.Economy(), jobs, config.DefaultConfig().Economy, &log)
	require.NoError(t, err)
	return &service.Services{
		Economy:    economy,
		Moderation: service.NewModerationService(mem.Moderation(), jobs, &log),
		Government: service.NewGovernmentService(mem.Government(), &log),
		Dealership: service.NewDealershipService(mem.Dealership(), &log),
		Job:        jobs,
	}
}

func TestBuildInstancesSkipsMissingTokens(t *testing.T) {
	log := zerolog.Nop()
	services := newServices(t)

	cfg := config.DefaultConfig().Discord
	cfg.EconomyToken = "eco-token"
	cfg.DealershipToken = "cars-token"

	instances, err := BuildInstances(cfg, services, command.Options{}, &log)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "economy", instances[0].Name)
	assert.Equal(t, "dealership", instances[1].Name)

	sets := CommandSets(services)
	for _, inst := range instances {
		status := inst.Status()
		assert.Equal(t, len(sets[inst.Name]), status.Commands, inst.Name)
		assert.False(t, status.Running)
	}

	instances, err = BuildInstances(config.DiscordConfig{}, services, command.Options{}, &log)
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestCommandSetsHaveUniqueNames(t *testing.T) {
	sets := CommandSets(newServices(t))
	require.Len(t, sets, len(InstanceOrder))

	for _, name := range InstanceOrder {
		cmds := sets[name]
		require.NotEmpty(t, cmds, name)

		seen := make(map[string]bool)
		for _, cmd := range cmds {
			assert.False(t, seen[cmd.Name()], "%s registers %s twice", name, cmd.Name())
			seen[cmd.Name()] = true
		}
	}
}

func TestNewInstanceID(t *testing.T) {
	a, b := NewInstanceID(), NewInstanceID()
	assert.Len(t, a, 10)
	assert.Regexp(t, `^[0-9A-F]{10}$`, a)
	assert.NotEqual(t, a, b)
}
