package curve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/persistence"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

var modeFlag string

var Command = &cobra.Command{
	Use:              "curve",
	Short:            "Commands for the learned fan curve",
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&modeFlag,
		"mode", "m",
		"",
		"Power mode (quiet, balanced, performance, custom), defaults to learning.defaultMode",
	)
}

// loadEngine reads the configuration and restores the learned data from the database
func loadEngine() (*learning.Engine, configuration.PowerMode, error) {
	configPath := configuration.DetectConfigFile()
	if configPath != "" {
		ui.Debug("Using configuration file at: %s", configPath)
	}
	configuration.LoadConfig()

	mode := configuration.CurrentConfig.Learning.DefaultMode
	if modeFlag != "" {
		parsed, err := configuration.ParsePowerMode(modeFlag)
		if err != nil {
			return nil, "", err
		}
		mode = parsed
	}
	if mode == "" {
		mode = configuration.PowerModeBalanced
	}

	engine := learning.NewEngine(true)
	pers := persistence.NewPersistence(configuration.CurrentConfig.DbPath)
	if err := engine.LoadFrom(pers); err != nil {
		return nil, "", fmt.Errorf("load learning data from %s: %w", configuration.CurrentConfig.DbPath, err)
	}
	return engine, mode, nil
}
