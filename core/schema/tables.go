package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var resourceTypePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{0,63}$`)

// Tables holds the names of the per resource type tables.
type Tables struct {
	ResourceType     string
	LogicalResources string
	Resources        string
	StrValues        string
	DateValues       string
	NumberValues     string
}

// ParameterTables returns the per type parameter tables.
func (t Tables) ParameterTables() []string {
	return []string{t.StrValues, t.DateValues, t.NumberValues}
}

// TablesFor returns the table names of resourceType. The name is validated because it
// is interpolated into SQL text.
func TablesFor(resourceType string) (Tables, error) {
	if !resourceTypePattern.MatchString(resourceType) {
		return Tables{}, fmt.Errorf("invalid resource type name %q", resourceType)
	}
	prefix := strings.ToLower(resourceType)
	return Tables{
		ResourceType:     resourceType,
		LogicalResources: prefix + "_logical_resources",
		Resources:        prefix + "_resources",
		StrValues:        prefix + "_str_values",
		DateValues:       prefix + "_date_values",
		NumberValues:     prefix + "_number_values",
	}, nil
}

// GlobalParameterTables are the parameter tables keyed by logical_resource_id that are
// shared by every resource type.
var GlobalParameterTables = []string{
	ResourceTokenRef{}.TableName(),
	LogicalResourceProfile{}.TableName(),
	LogicalResourceTag{}.TableName(),
	LogicalResourceSecurity{}.TableName(),
}
