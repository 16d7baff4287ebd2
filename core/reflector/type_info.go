// Package reflector resolves and caches the type names used to route
// commands and events on the bus.
package reflector

import (
	"reflect"
	"sync"
)

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

// TypeInfo holds metadata about a reflected type.
type TypeInfo struct {
	Name string       // Fully qualified name: "pkg/path.TypeName"
	Type reflect.Type // The underlying element type (pointers are unwrapped)
}

// Typer lets a message choose its own routing name instead of the Go type name.
type Typer interface {
	MsgType() string
}

// TypeInfoOf returns TypeInfo for the dynamic type of x.
func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

// TypeInfoForType returns TypeInfo for t. Pointer types resolve to their
// element type so that T and *T share one name.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{
		Name: t.PkgPath() + "." + t.Name(),
		Type: t,
	}

	muCache.Lock()
	if existing, ok := cache[t]; ok {
		muCache.Unlock()
		return existing
	}
	cache[t] = ti
	muCache.Unlock()

	return ti
}

// NameOf returns the routing name of message x.
func NameOf(x any) string {
	if mt, ok := x.(Typer); ok {
		return mt.MsgType()
	}
	return TypeInfoOf(x).Name
}

// NameFor returns the routing name of messages of type T.
func NameFor[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if mt, ok := reflect.New(t).Interface().(Typer); ok {
		return mt.MsgType()
	}
	return TypeInfoForType(t).Name
}
