package config

import (
	"levee/core"
	"levee/pkg/ledger"

	"github.com/asaskevich/govalidator"
	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("LEVEE")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaults(config)

	if _, err := govalidator.ValidateStruct(config); err != nil {
		return err
	}

	return nil
}

func defaults(config *core.Config) {
	if config.App.SecondsPerStep <= 0 {
		config.App.SecondsPerStep = ledger.DefaultSecondsPerStep
	}

	if config.App.Port <= 0 {
		config.App.Port = 9801
	}
}
