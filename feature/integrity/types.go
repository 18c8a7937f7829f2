package integrity

// ActionType is the kind of a planned repair.
type ActionType string

const (
	// ActionDeleteStorage removes an orphaned payload object.
	ActionDeleteStorage ActionType = "delete_storage"
)

// Reference is a resource version pointing at an offloaded payload.
type Reference struct {
	ResourceType string `json:"resourceType"`
	LogicalID    string `json:"logicalId"`
	VersionID    int    `json:"versionId"`
}

// Result is the reconciliation outcome of one payload key.
type Result struct {
	Key            string     `json:"key"`
	Reference      *Reference `json:"reference,omitempty"`
	DBPresent      bool       `json:"dbPresent"`
	StoragePresent bool       `json:"storagePresent"`
	// Recent is set for objects inside the grace period. They are never purged.
	Recent bool `json:"recent,omitempty"`
}

// Action is a planned repair.
type Action struct {
	Type   ActionType `json:"type"`
	Key    string     `json:"key"`
	Reason string     `json:"reason"`
}

// Summary counts the findings of a plan.
type Summary struct {
	TotalKeys      int `json:"totalKeys"`
	MissingStorage int `json:"missingStorage"`
	Orphaned       int `json:"orphaned"`
	PurgeActions   int `json:"purgeActions"`
}

// Plan holds the inconsistent keys and the repairs for them. Consistent keys are
// counted in the summary but not listed.
type Plan struct {
	Results []Result `json:"results"`
	Actions []Action `json:"actions"`
	Summary Summary  `json:"summary"`
}

// Options controls planning and applying.
type Options struct {
	// DoPurge plans removal of orphaned objects.
	DoPurge bool
	// Confirmed must be true for ApplyPlan to touch the store.
	Confirmed bool
	// DryRun plans without applying even when confirmed.
	DryRun bool
}
