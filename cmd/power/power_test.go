package power

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSetCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "set"}
	cmd.Flags().IntVar(&pl1Flag, "pl1", 0, "")
	cmd.Flags().IntVar(&pl2Flag, "pl2", 0, "")
	cmd.Flags().IntVar(&tgpFlag, "tgp", 0, "")
	return cmd
}

func TestLimitsFromFlags_OnlyGivenFlags(t *testing.T) {
	// GIVEN
	cmd := createSetCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--pl2", "180", "--tgp", "0"}))

	// WHEN
	limits := limitsFromFlags(cmd)

	// THEN
	assert.Nil(t, limits.CpuPl1)
	assert.Equal(t, 180, *limits.CpuPl2)
	assert.Equal(t, 0, *limits.GpuTgp)
}

func TestLimitsFromFlags_None(t *testing.T) {
	// GIVEN
	cmd := createSetCommand()
	require.NoError(t, cmd.ParseFlags([]string{}))

	// WHEN
	limits := limitsFromFlags(cmd)

	// THEN
	assert.True(t, limits.IsEmpty())
}
