package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/constants"
)

func TestRegisterAll(t *testing.T) {
	require.NoError(t, RegisterAll())

	want := []string{
		constants.ActCollectSystem,
		constants.ActExecutions,
		constants.ActHelp,
		constants.ActMigrate,
		constants.ActPipelines,
		constants.ActQuality,
		constants.ActRecordExecution,
		constants.ActRecordQuality,
		constants.ActSeed,
		constants.ActServe,
		constants.ActSummary,
		constants.ActSystemMetrics,
		constants.ActVersion,
	}
	assert.ElementsMatch(t, want, command.Names())

	// Повторная регистрация отклоняется реестром.
	assert.Error(t, RegisterAll())
}
