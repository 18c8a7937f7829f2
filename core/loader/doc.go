// Package loader provides the feature loading system of the admin surface.
//
// Each feature implements the Feature interface:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps the registry of features and loads the enabled ones with LoadAll,
// so resources, reindex and erase can be developed and tested in isolation.
package loader
