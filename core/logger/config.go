package logger

// Config holds the logger settings.
type Config struct {
	// Level is the minimum level; "debug" also switches to the development encoder config.
	Level string `mapstructure:"level" default:"info"`
	// Format is "json" or "console".
	Format string `mapstructure:"format" default:"json"`
}
