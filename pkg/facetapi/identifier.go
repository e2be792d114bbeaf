package facetapi

import "fmt"

// NoParam marks an identifier that does not refer to an action parameter
const NoParam = -1

// Identifier uniquely names a program element within the metamodel
type Identifier struct {
	TypeName   string // Full type name, e.g. "example.com/crm.Customer"
	MemberName string // Member id, empty for the type itself
	ParamIndex int    // Parameter index or NoParam
}

// TypeIdentifier returns the identifier of a type
func TypeIdentifier(typeName string) Identifier {
	return Identifier{TypeName: typeName, ParamIndex: NoParam}
}

// MemberIdentifier returns the identifier of a member of a type
func MemberIdentifier(typeName, member string) Identifier {
	return Identifier{TypeName: typeName, MemberName: member, ParamIndex: NoParam}
}

// ParameterIdentifier returns the identifier of an action parameter
func ParameterIdentifier(typeName, action string, index int) Identifier {
	return Identifier{TypeName: typeName, MemberName: action, ParamIndex: index}
}

// IsType reports whether the identifier refers to a type rather than a member
func (id Identifier) IsType() bool {
	return id.MemberName == ""
}

// String renders the identifier as Type, Type#member or Type#action[n]
func (id Identifier) String() string {
	switch {
	case id.MemberName == "":
		return id.TypeName
	case id.ParamIndex >= 0:
		return fmt.Sprintf("%s#%s[%d]", id.TypeName, id.MemberName, id.ParamIndex)
	default:
		return id.TypeName + "#" + id.MemberName
	}
}

// Less orders identifiers by type, member and parameter index
func (id Identifier) Less(other Identifier) bool {
	if id.TypeName != other.TypeName {
		return id.TypeName < other.TypeName
	}
	if id.MemberName != other.MemberName {
		return id.MemberName < other.MemberName
	}
	return id.ParamIndex < other.ParamIndex
}
