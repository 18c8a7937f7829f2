package cache

// Config holds the capacity of each shared identity cache.
type Config struct {
	// ResourceTypes is the capacity of the resource type cache.
	ResourceTypes int `mapstructure:"resource_types" default:"1000"`
	// CodeSystems is the capacity of the code system cache.
	CodeSystems int `mapstructure:"code_systems" default:"1000"`
	// ParameterNames is the capacity of the parameter name cache.
	ParameterNames int `mapstructure:"parameter_names" default:"5000"`
	// TokenValues is the capacity of the common token value cache.
	TokenValues int `mapstructure:"token_values" default:"100000"`
	// Canonicals is the capacity of the canonical url cache.
	Canonicals int `mapstructure:"canonicals" default:"10000"`
	// Idents is the capacity of the logical resource ident cache.
	Idents int `mapstructure:"idents" default:"100000"`
	// Prefill loads the small dictionaries with a full table scan at startup.
	Prefill bool `mapstructure:"prefill" default:"true"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ResourceTypes:  1000,
		CodeSystems:    1000,
		ParameterNames: 5000,
		TokenValues:    100000,
		Canonicals:     10000,
		Idents:         100000,
		Prefill:        true,
	}
}
