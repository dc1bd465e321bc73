package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config levee config
type Config struct {
	App App       `json:"app"`
	DB  db.Config `json:"db"`
}

// App app config
type App struct {
	// unix seconds the step clock counts from
	Genesis        int64 `json:"genesis" valid:"required"`
	SecondsPerStep int64 `json:"seconds_per_step"`
	// genesis administrator, effective until a handover completes
	Admin string `json:"admin" valid:"required"`
	Port  int    `json:"port"`
}
