package config

import "errors"

// ErrConfigurationInvalid — конфигурация не разбирается. Фатально при старте.
var ErrConfigurationInvalid = errors.New("configuration invalid")
