package facets

import (
	"reflect"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// resultCheck validates the (non-error) result type of a supporting method
type resultCheck func(reflect.Type) bool

func returns(t reflect.Type) resultCheck {
	return func(out reflect.Type) bool { return out == t }
}

func returnsAssignableTo(t reflect.Type) resultCheck {
	return func(out reflect.Type) bool { return out.AssignableTo(t) }
}

func returnsSliceOf(t reflect.Type) resultCheck {
	return func(out reflect.Type) bool {
		return (out.Kind() == reflect.Slice || out.Kind() == reflect.Array) && out.Elem().AssignableTo(t)
	}
}

// checkMethod reports whether mt (a method type including its receiver) accepts
// exactly params and produces a result satisfying result, optionally followed by
// an error. A nil result means the method returns nothing but an optional error.
func checkMethod(mt reflect.Type, params []reflect.Type, result resultCheck) bool {
	if mt.NumIn()-1 != len(params) {
		return false
	}
	for i, p := range params {
		if !p.AssignableTo(mt.In(i + 1)) {
			return false
		}
	}
	n := mt.NumOut()
	if n > 0 && mt.Out(n-1) == errorType {
		n--
	}
	if result == nil {
		return n == 0
	}
	return n == 1 && result(mt.Out(0))
}

// reportSignature records a supporting method whose signature does not match want
func reportSignature(r Reporter, id facetapi.Identifier, m reflect.Method, want string) {
	if r == nil {
		return
	}
	r.Add(id, "%s has signature %s, expected %s", m.Name, signature(m.Type), want)
}
