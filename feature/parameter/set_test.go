package parameter_test

import (
	"testing"
	"time"

	"resource-store/feature/parameter"

	"github.com/stretchr/testify/assert"
)

func TestSet_Hash(t *testing.T) {
	born := time.Date(1974, 12, 25, 0, 0, 0, 0, time.UTC)
	a := parameter.Set{
		Strings: []parameter.String{{Name: "family", Value: "Chalmers"}, {Name: "given", Value: "Peter"}},
		Dates:   []parameter.Date{{Name: "birthdate", Start: born, End: born.Add(24*time.Hour - time.Nanosecond)}},
		Tokens:  []parameter.Token{{Name: "gender", System: "http://hl7.org/fhir/administrative-gender", Code: "male"}},
	}
	b := parameter.Set{
		Tokens:  a.Tokens,
		Dates:   a.Dates,
		Strings: []parameter.String{a.Strings[1], a.Strings[0]},
	}

	assert.Len(t, a.Hash(), 16)
	assert.Equal(t, a.Hash(), b.Hash(), "order of values must not matter")

	b.Strings[0].Value = "Paul"
	assert.NotEqual(t, a.Hash(), b.Hash())

	assert.NotEqual(t,
		parameter.Set{Tags: []parameter.Coding{{System: "s", Code: "c"}}}.Hash(),
		parameter.Set{Security: []parameter.Coding{{System: "s", Code: "c"}}}.Hash(),
		"tags and security labels are distinct facts")

	v1, v2 := 1, 2
	assert.NotEqual(t,
		parameter.Set{References: []parameter.Reference{{Name: "subject", TargetType: "Patient", TargetID: "p1", Version: &v1}}}.Hash(),
		parameter.Set{References: []parameter.Reference{{Name: "subject", TargetType: "Patient", TargetID: "p1", Version: &v2}}}.Hash())
}

func TestSet_IsEmpty(t *testing.T) {
	assert.True(t, parameter.Set{}.IsEmpty())
	assert.False(t, parameter.Set{Numbers: []parameter.Number{{Name: "value-quantity", Value: 72}}}.IsEmpty())
}
