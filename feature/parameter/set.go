package parameter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// String is a string search value.
type String struct {
	Name  string
	Value string
}

// Date is a date search value covering [Start, End].
type Date struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Number is a numeric search value.
type Number struct {
	Name  string
	Value float64
}

// Token is a coded search value.
type Token struct {
	Name   string
	System string
	Code   string
}

// Reference is a reference search value pointing at TargetType/TargetID.
type Reference struct {
	Name       string
	TargetType string
	TargetID   string
	Version    *int
}

// Profile is a canonical url from meta.profile.
type Profile struct {
	URL     string
	Version string
}

// Coding is a meta.tag or meta.security entry.
type Coding struct {
	System string
	Code   string
}

// Set holds every search value extracted from one resource version.
type Set struct {
	Strings    []String
	Dates      []Date
	Numbers    []Number
	Tokens     []Token
	References []Reference
	Profiles   []Profile
	Tags       []Coding
	Security   []Coding
}

// IsEmpty reports whether the set holds no values.
func (s Set) IsEmpty() bool {
	return len(s.Strings)+len(s.Dates)+len(s.Numbers)+len(s.Tokens)+
		len(s.References)+len(s.Profiles)+len(s.Tags)+len(s.Security) == 0
}

// Hash returns a hex encoded content hash of the set that does not depend on the order
// of the values.
func (s Set) Hash() string {
	lines := make([]string, 0, 16)
	for _, v := range s.Strings {
		lines = append(lines, "s\x1f"+v.Name+"\x1f"+v.Value)
	}
	for _, v := range s.Dates {
		lines = append(lines, "d\x1f"+v.Name+"\x1f"+v.Start.UTC().Format(time.RFC3339Nano)+"\x1f"+v.End.UTC().Format(time.RFC3339Nano))
	}
	for _, v := range s.Numbers {
		lines = append(lines, "n\x1f"+v.Name+"\x1f"+strconv.FormatFloat(v.Value, 'g', -1, 64))
	}
	for _, v := range s.Tokens {
		lines = append(lines, "t\x1f"+v.Name+"\x1f"+v.System+"\x1f"+v.Code)
	}
	for _, v := range s.References {
		version := ""
		if v.Version != nil {
			version = strconv.Itoa(*v.Version)
		}
		lines = append(lines, "r\x1f"+v.Name+"\x1f"+v.TargetType+"\x1f"+v.TargetID+"\x1f"+version)
	}
	for _, v := range s.Profiles {
		lines = append(lines, "p\x1f"+v.URL+"\x1f"+v.Version)
	}
	for _, v := range s.Tags {
		lines = append(lines, "g\x1f"+v.System+"\x1f"+v.Code)
	}
	for _, v := range s.Security {
		lines = append(lines, "x\x1f"+v.System+"\x1f"+v.Code)
	}
	sort.Strings(lines)

	h := xxhash.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.WriteString("\x1e")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// names returns the distinct parameter names used by the set in sorted order.
func (s Set) names() []string {
	seen := make(map[string]struct{})
	add := func(n string) { seen[n] = struct{}{} }
	for _, v := range s.Strings {
		add(v.Name)
	}
	for _, v := range s.Dates {
		add(v.Name)
	}
	for _, v := range s.Numbers {
		add(v.Name)
	}
	for _, v := range s.Tokens {
		add(v.Name)
	}
	for _, v := range s.References {
		add(v.Name)
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func lower(s string) string {
	return strings.ToLower(s)
}
