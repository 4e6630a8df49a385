package field

// Field selects which document attribute a query is matched against.
type Field string

// Supported search fields.
const (
	Title    Field = "title"
	Content  Field = "content"
	FullText Field = "full-text"
)

// Default is used when the caller does not specify a field.
const Default = Title

// IsValid reports whether the field is supported.
func (f Field) IsValid() bool {
	switch f {
	case Title, Content, FullText:
		return true
	}
	return false
}

// Parse maps a raw string onto a Field. Empty means Default.
func Parse(s string) (Field, bool) {
	if s == "" {
		return Default, true
	}
	f := Field(s)
	return f, f.IsValid()
}
