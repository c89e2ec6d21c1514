package cache

import "fmt"

// ConfigError reports an invalid cache configuration, detected at
// construction time rather than first use.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache config %s: %s", e.Field, e.Reason)
}
