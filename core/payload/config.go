package payload

// Config controls how resource payloads are stored.
type Config struct {
	// Compress gzips payloads before they are stored.
	Compress bool `mapstructure:"compress" default:"true"`
	// OffloadThreshold is the encoded size in bytes above which payloads are written to
	// the object store instead of the data column. Zero disables offloading.
	OffloadThreshold int `mapstructure:"offload_threshold" default:"0"`
}
