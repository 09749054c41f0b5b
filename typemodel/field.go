package typemodel

// ParameterKind tags request fields with where the value is carried.
type ParameterKind string

const (
	ParamBody   ParameterKind = "BODY"
	ParamQuery  ParameterKind = "QUERY"
	ParamPath   ParameterKind = "PATH"
	ParamHeader ParameterKind = "HEADER"
)

// Ptr returns a pointer to k, for FieldInfo.ParameterKind.
func (k ParameterKind) Ptr() *ParameterKind {
	return &k
}

// FieldInfo is the flattened description of one property met during
// expansion. Path is dotted and unique within one expansion; root fields
// have no prefix. Elements of collections contribute "name[].child" paths.
type FieldInfo struct {
	Path          string         `json:"path"`
	Type          string         `json:"type"`
	Description   string         `json:"description"`
	Nullable      bool           `json:"nullable"`
	ParameterKind *ParameterKind `json:"parameterKind,omitempty"`
}

// JoinPath appends name to a dotted prefix.
func JoinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
