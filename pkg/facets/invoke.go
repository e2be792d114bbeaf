package facets

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	stringType  = reflect.TypeOf("")
	boolType    = reflect.TypeOf(true)
)

// TakesContext reports whether a method (with receiver) takes a context.Context first argument
func TakesContext(mt reflect.Type) bool {
	return mt.NumIn() > 1 && mt.In(1) == contextType
}

// ParamTypes returns the argument types of a method (with receiver), excluding a leading context
func ParamTypes(mt reflect.Type) []reflect.Type {
	start := 1
	if TakesContext(mt) {
		start = 2
	}
	var result []reflect.Type
	for i := start; i < mt.NumIn(); i++ {
		result = append(result, mt.In(i))
	}
	return result
}

// ReturnType returns the first non-error result type of a method, or nil
func ReturnType(mt reflect.Type) reflect.Type {
	for i := 0; i < mt.NumOut(); i++ {
		if mt.Out(i) != errorType {
			return mt.Out(i)
		}
	}
	return nil
}

// receiver converts obj to an addressable value of *t suitable as a method receiver
func receiver(obj any, t reflect.Type) (reflect.Value, error) {
	if obj == nil {
		return reflect.Value{}, fmt.Errorf("nil target for %s", t)
	}
	v := reflect.ValueOf(obj)
	switch {
	case v.Kind() == reflect.Pointer && v.Type().Elem() == t:
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil target for %s", t)
		}
		return v, nil
	case v.Type() == t:
		p := reflect.New(t)
		p.Elem().Set(v)
		return p, nil
	default:
		return reflect.Value{}, fmt.Errorf("target of type %s is not a %s", v.Type(), t)
	}
}

// argument converts a to a value assignable to t
func argument(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
	}
	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Type().ConvertibleTo(t) && v.Kind() == t.Kind() {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), t)
}

// call invokes a method on obj, recovering panics raised by domain code
func call(method reflect.Method, t reflect.Type, obj any, ctx context.Context, args ...any) (out []reflect.Value, err error) {
	recv, err := receiver(obj, t)
	if err != nil {
		return nil, err
	}

	mt := method.Type
	in := []reflect.Value{recv}
	if TakesContext(mt) {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}
	params := ParamTypes(mt)
	if len(args) != len(params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", method.Name, len(params), len(args))
	}
	for i, a := range args {
		v, err := argument(a, params[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", method.Name, i, err)
		}
		in = append(in, v)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", method.Name, r)
		}
	}()
	return method.Func.Call(in), nil
}

// splitResult separates the value and error results of a method call
func splitResult(out []reflect.Value) (any, error) {
	var value any
	var err error
	for _, v := range out {
		if v.Type() == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		if value == nil {
			value = v.Interface()
		}
	}
	return value, err
}

// toSlice flattens a slice or array value into []any
func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result[i] = rv.Index(i).Interface()
	}
	return result
}

// ElementType returns the element type of a slice, array or map, or nil
func ElementType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return t.Elem()
	}
	return nil
}

// IsCollectionType reports whether values of t are collections rather than single values.
// Byte slices are treated as single (blob) values.
func IsCollectionType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	}
	return false
}

// signature renders a method type without its receiver, e.g. "func(string) bool"
func signature(mt reflect.Type) string {
	var b strings.Builder
	b.WriteString("func(")
	for i := 1; i < mt.NumIn(); i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(mt.In(i).String())
	}
	b.WriteString(")")
	switch mt.NumOut() {
	case 0:
	case 1:
		b.WriteString(" " + mt.Out(0).String())
	default:
		outs := make([]string, mt.NumOut())
		for i := range outs {
			outs[i] = mt.Out(i).String()
		}
		b.WriteString(" (" + strings.Join(outs, ", ") + ")")
	}
	return b.String()
}
