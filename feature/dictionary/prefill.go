package dictionary

import (
	"context"
	"fmt"

	"resource-store/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Prefill loads every resource type, code system and parameter name into the shared
// caches. Concurrent calls share one scan.
func (r *Resolver) Prefill(ctx context.Context, db *gorm.DB) error {
	_, err, _ := r.group.Do("prefill", func() (any, error) {
		return nil, r.prefill(ctx, db)
	})
	return err
}

func (r *Resolver) prefill(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	var types []schema.ResourceType
	if err := db.Find(&types).Error; err != nil {
		return fmt.Errorf("failed to prefill resource types: %w", err)
	}
	typeIDs := make(map[string]int, len(types))
	for _, t := range types {
		typeIDs[t.ResourceType] = t.ResourceTypeID
	}
	r.ids.PrefillResourceTypes(typeIDs)

	var systems []schema.CodeSystem
	if err := db.Find(&systems).Error; err != nil {
		return fmt.Errorf("failed to prefill code systems: %w", err)
	}
	systemIDs := make(map[string]int, len(systems))
	for _, s := range systems {
		systemIDs[s.CodeSystemName] = s.CodeSystemID
	}
	r.ids.CodeSystems.Prefill(systemIDs)

	var names []schema.ParameterName
	if err := db.Find(&names).Error; err != nil {
		return fmt.Errorf("failed to prefill parameter names: %w", err)
	}
	nameIDs := make(map[string]int, len(names))
	for _, n := range names {
		nameIDs[n.ParameterName] = n.ParameterNameID
	}
	r.ids.ParameterNames.Prefill(nameIDs)

	r.logger.Info("Prefilled identity caches",
		zap.Int("resource_types", len(typeIDs)),
		zap.Int("code_systems", len(systemIDs)),
		zap.Int("parameter_names", len(nameIDs)),
	)
	return nil
}
