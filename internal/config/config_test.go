package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.ListenHost)
	assert.Equal(t, 0, cfg.ListenPort)
	assert.Equal(t, 4, cfg.MaxPlayersPerRoom)
	assert.Equal(t, 15000, cfg.HeartbeatIntervalMs)
	assert.Equal(t, 30000, cfg.HeartbeatTimeoutMs)
	assert.Equal(t, [2]int{400, 1200}, cfg.BotThinkDelayMsRange)
	assert.Equal(t, 50, cfg.WinningScore)
	assert.Equal(t, 20, cfg.MaxRounds)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Greater(t, cfg.MaxRooms, 0)
	assert.Equal(t, 15000, cfg.PhaseTimeoutMs["DECLARATION"])
	assert.Equal(t, 20000, cfg.PhaseTimeoutMs["TURN"])
}

func TestParseOverridesFromArgs(t *testing.T) {
	cfg, err := Parse([]string{"-port", "9000", "-maxrooms", "10", "-debuglevel", "debug"})
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ListenPort)
	assert.Equal(t, 10, cfg.MaxRooms)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangePort(t *testing.T) {
	cfg, err := Parse([]string{"-port", "70000"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveMaxRooms(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	cfg.MaxRooms = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsWrongSeatCount(t *testing.T) {
	cfg, err := Parse([]string{"-maxplayers", "5"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsHeartbeatTimeoutNotExceedingInterval(t *testing.T) {
	cfg, err := Parse([]string{"-heartbeatintervalms", "30000", "-heartbeattimeoutms", "10000"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnrecognizedLogLevel(t *testing.T) {
	cfg, err := Parse([]string{"-debuglevel", "verbose"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedBotThinkRange(t *testing.T) {
	cfg, err := Parse([]string{"-botthinkminms", "1000", "-botthinkmaxms", "400"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}
