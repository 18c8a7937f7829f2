package loader_test

import (
	"errors"
	"testing"

	"resource-store/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type fakeFeature struct {
	name    string
	enabled bool
	err     error
	loaded  bool
}

func (f *fakeFeature) Name() string    { return f.name }
func (f *fakeFeature) IsEnabled() bool { return f.enabled }
func (f *fakeFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.err
}

func TestManager_LoadAll(t *testing.T) {
	enabled := &fakeFeature{name: "resources", enabled: true}
	disabled := &fakeFeature{name: "erase"}

	m := loader.NewManager()
	m.Register(enabled)
	m.Register(disabled)

	assert.NoError(t, m.LoadAll(fiber.New()))
	assert.True(t, enabled.loaded)
	assert.False(t, disabled.loaded)
	assert.Len(t, m.Features(), 2)
}

func TestManager_LoadAllError(t *testing.T) {
	m := loader.NewManager()
	m.Register(&fakeFeature{name: "reindex", enabled: true, err: errors.New("boom")})

	err := m.LoadAll(fiber.New())
	assert.EqualError(t, err, "failed to load feature reindex: boom")
}
