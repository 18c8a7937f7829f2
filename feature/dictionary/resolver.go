package dictionary

import (
	"errors"
	"sort"

	"resource-store/core/cache"
	"resource-store/core/dberr"
	"resource-store/core/schema"
	"resource-store/core/txn"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm/clause"
)

// batchSize bounds the number of values bound into one IN list.
const batchSize = 500

// Resolver maps dictionary values to ids, creating them when needed.
type Resolver struct {
	ids    *cache.Identity
	logger *zap.Logger
	group  singleflight.Group
}

// NewResolver creates a Resolver over the shared caches ids.
func NewResolver(ids *cache.Identity, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{ids: ids, logger: logger}
}

// readOrAdd implements the lookup chain for single valued dictionaries.
func readOrAdd(tx *txn.Tx, staged *cache.Staged[string, int], op, name string,
	read func() ([]int, error), add func() (int, error)) (int, error) {
	if id, ok := staged.Get(name); ok {
		return id, nil
	}

	ids, err := read()
	if err != nil {
		return 0, tx.Dialect.Translate(op, err)
	}
	if len(ids) == 0 {
		var id int
		err := tx.Guard(func() error {
			var addErr error
			id, addErr = add()
			return addErr
		})
		if err == nil {
			staged.Put(name, id)
			return id, nil
		}
		if err = tx.Dialect.Translate(op, err); !errors.Is(err, dberr.ErrUniqueViolation) {
			return 0, err
		}

		// Lost the race against a concurrent insert of the same value.
		if ids, err = read(); err != nil {
			return 0, tx.Dialect.Translate(op, err)
		}
		if len(ids) == 0 {
			return 0, dberr.CorruptSchema("%s %q collided on insert but cannot be read", op, name)
		}
	}

	staged.Put(name, ids[0])
	return ids[0], nil
}

// ResourceTypeID returns the id of the resource type name, creating it when needed.
func (r *Resolver) ResourceTypeID(tx *txn.Tx, name string) (int, error) {
	id, err := readOrAdd(tx, tx.Cache.ResourceTypes, "resource type", name,
		func() ([]int, error) {
			var ids []int
			err := tx.DB.Raw("SELECT resource_type_id FROM resource_types WHERE resource_type = ?", name).Scan(&ids).Error
			return ids, err
		},
		func() (int, error) {
			row := schema.ResourceType{ResourceType: name}
			err := tx.DB.Create(&row).Error
			return row.ResourceTypeID, err
		})
	if err != nil {
		return 0, err
	}
	tx.Cache.ResourceTypeNames.Put(id, name)
	return id, nil
}

// LookupResourceTypeID returns the id of the resource type name without creating it.
// found is false when the type has never been stored.
func (r *Resolver) LookupResourceTypeID(tx *txn.Tx, name string) (id int, found bool, err error) {
	if id, ok := tx.Cache.ResourceTypes.Get(name); ok {
		return id, true, nil
	}
	var ids []int
	if err := tx.DB.Raw("SELECT resource_type_id FROM resource_types WHERE resource_type = ?", name).Scan(&ids).Error; err != nil {
		return 0, false, tx.Dialect.Translate("resource type", err)
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	tx.Cache.ResourceTypes.Put(name, ids[0])
	tx.Cache.ResourceTypeNames.Put(ids[0], name)
	return ids[0], true, nil
}

// ResourceTypeName returns the name of the resource type id.
func (r *Resolver) ResourceTypeName(tx *txn.Tx, id int) (string, error) {
	if name, ok := tx.Cache.ResourceTypeNames.Get(id); ok {
		return name, nil
	}
	var names []string
	if err := tx.DB.Raw("SELECT resource_type FROM resource_types WHERE resource_type_id = ?", id).Scan(&names).Error; err != nil {
		return "", tx.Dialect.Translate("resource type name", err)
	}
	if len(names) == 0 {
		return "", dberr.CorruptSchema("resource type id %d does not exist", id)
	}
	tx.Cache.ResourceTypeNames.Put(id, names[0])
	tx.Cache.ResourceTypes.Put(names[0], id)
	return names[0], nil
}

// CodeSystemID returns the id of the code system, creating it when needed.
func (r *Resolver) CodeSystemID(tx *txn.Tx, system string) (int, error) {
	return readOrAdd(tx, tx.Cache.CodeSystems, "code system", system,
		func() ([]int, error) {
			var ids []int
			err := tx.DB.Raw("SELECT code_system_id FROM code_systems WHERE code_system_name = ?", system).Scan(&ids).Error
			return ids, err
		},
		func() (int, error) {
			row := schema.CodeSystem{CodeSystemName: system}
			err := tx.DB.Create(&row).Error
			return row.CodeSystemID, err
		})
}

// ParameterNameID returns the id of the search parameter name, creating it when needed.
func (r *Resolver) ParameterNameID(tx *txn.Tx, name string) (int, error) {
	return readOrAdd(tx, tx.Cache.ParameterNames, "parameter name", name,
		func() ([]int, error) {
			var ids []int
			err := tx.DB.Raw("SELECT parameter_name_id FROM parameter_names WHERE parameter_name = ?", name).Scan(&ids).Error
			return ids, err
		},
		func() (int, error) {
			row := schema.ParameterName{ParameterName: name}
			err := tx.DB.Create(&row).Error
			return row.ParameterNameID, err
		})
}

// CanonicalID returns the id of the canonical url, creating it when needed.
func (r *Resolver) CanonicalID(tx *txn.Tx, url string) (int, error) {
	ids, err := r.CanonicalIDs(tx, []string{url})
	if err != nil {
		return 0, err
	}
	return ids[url], nil
}

// CanonicalIDs resolves a batch of canonical urls.
func (r *Resolver) CanonicalIDs(tx *txn.Tx, urls []string) (map[string]int, error) {
	resolved, misses := tx.Cache.Canonicals.ResolveBatch(urls)
	if len(misses) == 0 {
		return resolved, nil
	}
	sort.Strings(misses)

	read := func(values []string) error {
		for start := 0; start < len(values); start += batchSize {
			chunk := values[start:min(start+batchSize, len(values))]
			var rows []schema.CommonCanonicalValue
			if err := tx.DB.Raw("SELECT canonical_id, url FROM common_canonical_values WHERE url IN ?", chunk).Scan(&rows).Error; err != nil {
				return tx.Dialect.Translate("read canonical values", err)
			}
			for _, row := range rows {
				resolved[row.URL] = row.CanonicalID
				tx.Cache.Canonicals.Put(row.URL, row.CanonicalID)
			}
		}
		return nil
	}

	if err := read(misses); err != nil {
		return nil, err
	}
	var add []schema.CommonCanonicalValue
	for _, url := range misses {
		if _, ok := resolved[url]; !ok {
			add = append(add, schema.CommonCanonicalValue{URL: url})
		}
	}
	if len(add) == 0 {
		return resolved, nil
	}

	if err := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&add, batchSize).Error; err != nil {
		return nil, tx.Dialect.Translate("add canonical values", err)
	}
	pending := make([]string, len(add))
	for i, row := range add {
		pending[i] = row.URL
	}
	if err := read(pending); err != nil {
		return nil, err
	}
	for _, url := range pending {
		if _, ok := resolved[url]; !ok {
			return nil, dberr.CorruptSchema("canonical value %q was inserted but cannot be read", url)
		}
	}
	return resolved, nil
}

// TokenValueIDs resolves a batch of common token values.
func (r *Resolver) TokenValueIDs(tx *txn.Tx, values []cache.TokenKey) (map[cache.TokenKey]int64, error) {
	resolved, misses := tx.Cache.TokenValues.ResolveBatch(values)
	if len(misses) == 0 {
		return resolved, nil
	}
	sort.Slice(misses, func(i, j int) bool {
		if misses[i].CodeSystemID != misses[j].CodeSystemID {
			return misses[i].CodeSystemID < misses[j].CodeSystemID
		}
		return misses[i].Value < misses[j].Value
	})

	read := func(keys []cache.TokenKey) error {
		for system, tokens := range groupByCodeSystem(keys) {
			for start := 0; start < len(tokens); start += batchSize {
				chunk := tokens[start:min(start+batchSize, len(tokens))]
				var rows []schema.CommonTokenValue
				err := tx.DB.Raw("SELECT common_token_value_id, code_system_id, token_value FROM common_token_values WHERE code_system_id = ? AND token_value IN ?",
					system, chunk).Scan(&rows).Error
				if err != nil {
					return tx.Dialect.Translate("read common token values", err)
				}
				for _, row := range rows {
					key := cache.TokenKey{CodeSystemID: row.CodeSystemID, Value: row.TokenValue}
					resolved[key] = row.CommonTokenValueID
					tx.Cache.TokenValues.Put(key, row.CommonTokenValueID)
				}
			}
		}
		return nil
	}

	if err := read(misses); err != nil {
		return nil, err
	}
	var add []schema.CommonTokenValue
	var pending []cache.TokenKey
	for _, key := range misses {
		if _, ok := resolved[key]; !ok {
			add = append(add, schema.CommonTokenValue{CodeSystemID: key.CodeSystemID, TokenValue: key.Value})
			pending = append(pending, key)
		}
	}
	if len(add) == 0 {
		return resolved, nil
	}

	r.logger.Debug("Adding common token values", zap.Int("count", len(add)))
	if err := tx.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&add, batchSize).Error; err != nil {
		return nil, tx.Dialect.Translate("add common token values", err)
	}
	if err := read(pending); err != nil {
		return nil, err
	}
	for _, key := range pending {
		if _, ok := resolved[key]; !ok {
			return nil, dberr.CorruptSchema("common token value %d|%q was inserted but cannot be read", key.CodeSystemID, key.Value)
		}
	}
	return resolved, nil
}

func groupByCodeSystem(keys []cache.TokenKey) map[int][]string {
	out := make(map[int][]string)
	for _, k := range keys {
		out[k.CodeSystemID] = append(out[k.CodeSystemID], k.Value)
	}
	return out
}
