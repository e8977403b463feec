package cache

import (
	"fmt"
	"reflect"
)

// Identifier lets a value type choose its own cache type identifier.
// CacheTypeID is called on the zero value and must return a constant.
type Identifier interface {
	CacheTypeID() string
}

// TypeID returns the stable type identifier used in keys for values of type T.
//
// Types implementing Identifier (on the value or pointer receiver) supply
// their own identifier; a pointer type shares the identifier of its element.
// Otherwise the package-path qualified type name is used, e.g.
// "github.com/Sternrassler/dinkelberg/pkg/bot.Reply".
func TypeID[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		// The zero T is a nil pointer; ask a fresh element instead.
		if id, ok := reflect.New(t.Elem()).Interface().(Identifier); ok {
			return id.CacheTypeID()
		}
		return typeName(t)
	}

	var zero T
	if id, ok := any(zero).(Identifier); ok {
		return id.CacheTypeID()
	}
	if id, ok := any(&zero).(Identifier); ok {
		return id.CacheTypeID()
	}
	return typeName(t)
}

func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// PlainKey builds the key of a memoized entry.
// Format: {type}.{id}
//
// Example:
//
//	ddg.Answer.golang
func PlainKey(typeID string, id any) string {
	return typeID + "." + fmt.Sprint(id)
}

// ScopedKey builds the key of a scoped entry.
// Format: scope.{scope}.{type}
//
// Example:
//
//	scope.-100123.ddg.ImageResponse
func ScopedKey(scope any, typeID string) string {
	return "scope." + fmt.Sprint(scope) + "." + typeID
}
