package reference

// TokenRec is one token or reference search value of a logical resource.
type TokenRec struct {
	LogicalResourceID int64
	ResourceTypeID    int
	ParameterNameID   int
	CodeSystem        string
	TokenValue        string
	// RefVersionID is the version of a versioned reference.
	RefVersionID *int
}

// ProfileRec is a meta.profile canonical of a logical resource.
type ProfileRec struct {
	LogicalResourceID int64
	ResourceTypeID    int
	URL               string
	Version           string
}

// TagRec is a meta.tag or meta.security coding of a logical resource.
type TagRec struct {
	LogicalResourceID int64
	ResourceTypeID    int
	CodeSystem        string
	Code              string
}

// Batch collects records to be written together.
type Batch struct {
	Tokens   []TokenRec
	Profiles []ProfileRec
	Tags     []TagRec
	Security []TagRec
}

// Len returns the number of collected records.
func (b *Batch) Len() int {
	return len(b.Tokens) + len(b.Profiles) + len(b.Tags) + len(b.Security)
}

// Reset drops the collected records.
func (b *Batch) Reset() {
	b.Tokens = b.Tokens[:0]
	b.Profiles = b.Profiles[:0]
	b.Tags = b.Tags[:0]
	b.Security = b.Security[:0]
}
