package cache

// TokenKey identifies a common token value.
type TokenKey struct {
	CodeSystemID int
	Value        string
}

// IdentKey identifies a logical resource.
type IdentKey struct {
	ResourceTypeID int
	LogicalID      string
}

// Identity is the set of shared dictionary caches of the process.
type Identity struct {
	ResourceTypes     *Shared[string, int]
	ResourceTypeNames *Shared[int, string]
	CodeSystems       *Shared[string, int]
	ParameterNames    *Shared[string, int]
	TokenValues       *Shared[TokenKey, int64]
	Canonicals        *Shared[string, int]
	Idents            *Shared[IdentKey, int64]
}

// NewIdentity creates the shared caches sized by cfg.
func NewIdentity(cfg Config, observer Observer) (*Identity, error) {
	var (
		ids Identity
		err error
	)
	if ids.ResourceTypes, err = NewShared[string, int]("resource_types", cfg.ResourceTypes, observer); err != nil {
		return nil, err
	}
	if ids.ResourceTypeNames, err = NewShared[int, string]("resource_type_names", cfg.ResourceTypes, observer); err != nil {
		return nil, err
	}
	if ids.CodeSystems, err = NewShared[string, int]("code_systems", cfg.CodeSystems, observer); err != nil {
		return nil, err
	}
	if ids.ParameterNames, err = NewShared[string, int]("parameter_names", cfg.ParameterNames, observer); err != nil {
		return nil, err
	}
	if ids.TokenValues, err = NewShared[TokenKey, int64]("token_values", cfg.TokenValues, observer); err != nil {
		return nil, err
	}
	if ids.Canonicals, err = NewShared[string, int]("canonicals", cfg.Canonicals, observer); err != nil {
		return nil, err
	}
	if ids.Idents, err = NewShared[IdentKey, int64]("idents", cfg.Idents, observer); err != nil {
		return nil, err
	}
	return &ids, nil
}

// PrefillResourceTypes loads committed resource types into both directions of the cache.
func (c *Identity) PrefillResourceTypes(entries map[string]int) {
	c.ResourceTypes.Prefill(entries)
	for name, id := range entries {
		c.ResourceTypeNames.Add(id, name)
	}
}

// NewScope returns the staging layer for one transaction.
func (c *Identity) NewScope() *Scope {
	return &Scope{
		ResourceTypes:     c.ResourceTypes.Stage(),
		ResourceTypeNames: c.ResourceTypeNames.Stage(),
		CodeSystems:       c.CodeSystems.Stage(),
		ParameterNames:    c.ParameterNames.Stage(),
		TokenValues:       c.TokenValues.Stage(),
		Canonicals:        c.Canonicals.Stage(),
		Idents:            c.Idents.Stage(),
	}
}

// Scope holds the entries staged by one transaction.
type Scope struct {
	ResourceTypes     *Staged[string, int]
	ResourceTypeNames *Staged[int, string]
	CodeSystems       *Staged[string, int]
	ParameterNames    *Staged[string, int]
	TokenValues       *Staged[TokenKey, int64]
	Canonicals        *Staged[string, int]
	Idents            *Staged[IdentKey, int64]
}

// UpdateSharedMaps promotes every staged entry. Call it only after a successful commit.
func (s *Scope) UpdateSharedMaps() {
	s.ResourceTypes.Promote()
	s.ResourceTypeNames.Promote()
	s.CodeSystems.Promote()
	s.ParameterNames.Promote()
	s.TokenValues.Promote()
	s.Canonicals.Promote()
	s.Idents.Promote()
}

// ClearLocalMaps discards every staged entry. Call it on rollback.
func (s *Scope) ClearLocalMaps() {
	s.ResourceTypes.Discard()
	s.ResourceTypeNames.Discard()
	s.CodeSystems.Discard()
	s.ParameterNames.Discard()
	s.TokenValues.Discard()
	s.Canonicals.Discard()
	s.Idents.Discard()
}
