// Package extract derives search parameter values from JSON resource payloads.
//
// MetaExtractor understands the resource envelope only: the id, the meta element
// (lastUpdated, profile, tag, security), identifier and subject references. Full search
// parameter definitions are not interpreted.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resource-store/feature/parameter"
)

type coding struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

type identifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type referenceElem struct {
	Reference string `json:"reference"`
}

type envelope struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Meta         struct {
		LastUpdated string   `json:"lastUpdated"`
		Profile     []string `json:"profile"`
		Tag         []coding `json:"tag"`
		Security    []coding `json:"security"`
	} `json:"meta"`
	Identifier []identifier   `json:"identifier"`
	Subject    *referenceElem `json:"subject"`
	Patient    *referenceElem `json:"patient"`
	Status     string         `json:"status"`
	Code       *struct {
		Coding []coding `json:"coding"`
	} `json:"code"`
}

// Resource is what MetaExtractor found in a payload.
type Resource struct {
	ResourceType string
	ID           string
	LastUpdated  time.Time
	Parameters   parameter.Set
}

// MetaExtractor extracts envelope level search values.
type MetaExtractor struct{}

// Parse reads the envelope of data and derives its search values.
func (MetaExtractor) Parse(data []byte) (*Resource, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse resource: %w", err)
	}
	if env.ResourceType == "" {
		return nil, fmt.Errorf("resource has no resourceType")
	}

	res := &Resource{ResourceType: env.ResourceType, ID: env.ID}
	set := &res.Parameters

	if env.ID != "" {
		set.Tokens = append(set.Tokens, parameter.Token{Name: "_id", Code: env.ID})
	}
	if env.Meta.LastUpdated != "" {
		ts, err := time.Parse(time.RFC3339Nano, env.Meta.LastUpdated)
		if err != nil {
			return nil, fmt.Errorf("invalid meta.lastUpdated %q: %w", env.Meta.LastUpdated, err)
		}
		res.LastUpdated = ts.UTC()
		set.Dates = append(set.Dates, parameter.Date{Name: "_lastUpdated", Start: res.LastUpdated, End: res.LastUpdated})
	}
	for _, p := range env.Meta.Profile {
		url, version, _ := strings.Cut(p, "|")
		set.Profiles = append(set.Profiles, parameter.Profile{URL: url, Version: version})
	}
	for _, c := range env.Meta.Tag {
		set.Tags = append(set.Tags, parameter.Coding{System: c.System, Code: c.Code})
	}
	for _, c := range env.Meta.Security {
		set.Security = append(set.Security, parameter.Coding{System: c.System, Code: c.Code})
	}
	for _, id := range env.Identifier {
		if id.Value == "" {
			continue
		}
		set.Tokens = append(set.Tokens, parameter.Token{Name: "identifier", System: id.System, Code: id.Value})
		set.Strings = append(set.Strings, parameter.String{Name: "identifier:text", Value: id.Value})
	}
	if env.Status != "" {
		set.Tokens = append(set.Tokens, parameter.Token{Name: "status", Code: env.Status})
	}
	if env.Code != nil {
		for _, c := range env.Code.Coding {
			set.Tokens = append(set.Tokens, parameter.Token{Name: "code", System: c.System, Code: c.Code})
		}
	}
	for name, ref := range map[string]*referenceElem{"subject": env.Subject, "patient": env.Patient} {
		if ref == nil || ref.Reference == "" {
			continue
		}
		r, ok := parseReference(name, ref.Reference)
		if ok {
			set.References = append(set.References, r)
		}
	}
	return res, nil
}

// Extract returns the search values of a payload of resourceType.
func (e MetaExtractor) Extract(resourceType string, data []byte) (parameter.Set, error) {
	res, err := e.Parse(data)
	if err != nil {
		return parameter.Set{}, err
	}
	if res.ResourceType != resourceType {
		return parameter.Set{}, fmt.Errorf("payload is a %s, not a %s", res.ResourceType, resourceType)
	}
	return res.Parameters, nil
}

// parseReference splits a relative reference Type/id[/_history/version].
func parseReference(name, ref string) (parameter.Reference, bool) {
	parts := strings.Split(ref, "/")
	if len(parts) != 2 && !(len(parts) == 4 && parts[2] == "_history") {
		return parameter.Reference{}, false
	}
	r := parameter.Reference{Name: name, TargetType: parts[0], TargetID: parts[1]}
	if len(parts) == 4 {
		v, err := strconv.Atoi(parts[3])
		if err != nil {
			return parameter.Reference{}, false
		}
		r.Version = &v
	}
	return r, true
}
