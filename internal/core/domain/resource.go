package domain

type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldInteger
	FieldBool
	FieldStringList
	FieldRef
)

func (t FieldType) String() string {
	switch t {
	case FieldNumber:
		return "number"
	case FieldInteger:
		return "integer"
	case FieldBool:
		return "boolean"
	case FieldStringList:
		return "list of strings"
	case FieldRef:
		return "id"
	default:
		return "string"
	}
}

// FieldSpec declares one writable field of a resource.
//
// Omitted optional fields are stored as Default, which may be nil. DefaultToday
// stores the creation date as YYYY-MM-DD instead.
type FieldSpec struct {
	Name         string
	Type         FieldType
	Required     bool
	Enum         []string
	Min          *float64
	Max          *float64
	Trim         bool
	Lowercase    bool
	Default      any
	DefaultToday bool
}

// ResourceSchema describes a resource collection and how it is listed.
type ResourceSchema struct {
	// Name is the route segment, e.g. "bookings".
	Name       string
	Collection string
	// Label names a single record in messages, e.g. "Booking".
	Label  string
	Fields []FieldSpec
	// ListFilter is applied to every listing, e.g. only active pricing packages.
	ListFilter map[string]any
	Sort       []SortField
}

func (s *ResourceSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
