// Package redact masks values bound to sensitive names in log attributes
// and in rendered traceback locals.
package redact

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// Mask replaces every sensitive value. Its length is fixed so it does not leak the original length.
const Mask = "********"

// SensitiveKeys holds names considered sensitive.
var SensitiveKeys = map[string]struct{}{
	"password": {}, "pwd": {}, "pass": {}, "passwd": {},
	"token": {}, "jwt": {}, "auth_token": {}, "access_token": {}, "refresh_token": {},
	"api_key": {}, "apikey": {}, "secret": {}, "client_secret": {}, "private_key": {},
	"credential": {}, "bearer": {}, "authorization": {}, "cookie": {},
}

// IsSensitiveKey reports whether key names a sensitive value.
// Matching is case-insensitive; compound names such as "db_password" or "X-Auth-Token" match too.
func IsSensitiveKey(key string) bool {
	if key == "" {
		return false
	}
	key = strings.ToLower(key)
	if _, ok := SensitiveKeys[key]; ok {
		return true
	}
	for k := range SensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

const (
	// Cycle replaces a value that refers back to one of its own containers.
	Cycle = "<cycle>"
	// TooDeep replaces a value nested deeper than the walk follows.
	TooDeep = "<too deep>"

	maxDepth = 32
)

// Value walks v and masks every leaf whose nearest name is sensitive.
// keyHint is the name v is bound to, if any.
//
// v is returned as is when nothing in it needs masking. Otherwise the result is a copy of
// the same type where the masked values fit, and a map[string]any (or []any) where they do not.
// The input is never modified.
func Value(v any, keyHint string) any {
	w := walker{path: map[visit]struct{}{}}
	out, _ := w.walk(v, keyHint, 0)
	return out
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

// walker tracks the pointers, maps and slices on the current path.
type walker struct {
	path map[visit]struct{}
}

func (w *walker) enter(rv reflect.Value) (leave func(), ok bool) {
	ptr := rv.Pointer()
	if ptr == 0 {
		return func() {}, true
	}
	key := visit{ptr: ptr, typ: rv.Type()}
	if _, seen := w.path[key]; seen {
		return nil, false
	}
	w.path[key] = struct{}{}
	return func() { delete(w.path, key) }, true
}

// walk returns the masked form of v and whether it differs from v.
func (w *walker) walk(v any, keyHint string, depth int) (any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Struct:
		switch v.(type) {
		case fmt.Stringer, error:
			return leaf(v, keyHint)
		}
	case reflect.Map, reflect.Slice, reflect.Array:
	default:
		return leaf(v, keyHint)
	}
	if depth >= maxDepth {
		return TooDeep, true
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return w.pointer(rv, keyHint, depth)
	case reflect.Map:
		return w.mapValue(rv, keyHint, depth)
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return leaf(v, keyHint)
		}
		return w.list(rv, keyHint, depth)
	default:
		return w.structValue(rv, depth)
	}
}

func (w *walker) pointer(rv reflect.Value, keyHint string, depth int) (any, bool) {
	if rv.IsNil() {
		return rv.Interface(), false
	}
	leave, ok := w.enter(rv)
	if !ok {
		return Cycle, true
	}
	defer leave()

	elem := rv.Elem()
	out, changed := w.walk(elem.Interface(), keyHint, depth+1)
	if !changed {
		return rv.Interface(), false
	}
	if nv, ok := assignable(elem.Type(), out); ok {
		cp := reflect.New(elem.Type())
		cp.Elem().Set(nv)
		return cp.Interface(), true
	}
	return out, true
}

func (w *walker) mapValue(rv reflect.Value, keyHint string, depth int) (any, bool) {
	if rv.Len() == 0 {
		return rv.Interface(), false
	}
	leave, ok := w.enter(rv)
	if !ok {
		return Cycle, true
	}
	defer leave()

	keys := make([]reflect.Value, 0, rv.Len())
	values := make([]any, 0, rv.Len())
	changed := false
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		out, c := w.walk(iter.Value().Interface(), keyName(k, keyHint), depth+1)
		changed = changed || c
		keys = append(keys, k)
		values = append(values, out)
	}
	if !changed {
		return rv.Interface(), false
	}

	typ := rv.Type()
	out := reflect.MakeMapWithSize(typ, len(keys))
	for i, k := range keys {
		nv, ok := assignable(typ.Elem(), values[i])
		if !ok {
			generic := make(map[string]any, len(keys))
			for j, k := range keys {
				generic[fmt.Sprint(k.Interface())] = values[j]
			}
			return generic, true
		}
		out.SetMapIndex(k, nv)
	}
	return out.Interface(), true
}

// keyName is the name a map key gives its value: the key itself when it holds a string.
func keyName(k reflect.Value, keyHint string) string {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	if k.Kind() == reflect.String {
		return k.String()
	}
	return keyHint
}

func (w *walker) list(rv reflect.Value, keyHint string, depth int) (any, bool) {
	if rv.Len() == 0 {
		return rv.Interface(), false
	}
	if rv.Kind() == reflect.Slice {
		leave, ok := w.enter(rv)
		if !ok {
			return Cycle, true
		}
		defer leave()
	}

	values := make([]any, rv.Len())
	changed := false
	for i := range values {
		out, c := w.walk(rv.Index(i).Interface(), keyHint, depth+1)
		changed = changed || c
		values[i] = out
	}
	if !changed {
		return rv.Interface(), false
	}

	typ := rv.Type()
	var out reflect.Value
	if rv.Kind() == reflect.Slice {
		out = reflect.MakeSlice(typ, len(values), len(values))
	} else {
		out = reflect.New(typ).Elem()
	}
	for i, value := range values {
		nv, ok := assignable(typ.Elem(), value)
		if !ok {
			return values, true
		}
		out.Index(i).Set(nv)
	}
	return out.Interface(), true
}

// structValue masks exported fields. Unexported fields are only inspected by name: a
// sensitive one forces the map form, since it cannot be overwritten in a copy.
func (w *walker) structValue(rv reflect.Value, depth int) (any, bool) {
	typ := rv.Type()
	masked := make(map[int]any)
	hiddenSecret := false
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := fieldName(field)
		if !field.IsExported() {
			hiddenSecret = hiddenSecret || IsSensitiveKey(name)
			continue
		}
		if out, changed := w.walk(rv.Field(i).Interface(), name, depth+1); changed {
			masked[i] = out
		}
	}
	if len(masked) == 0 && !hiddenSecret {
		return rv.Interface(), false
	}

	if !hiddenSecret {
		cp := reflect.New(typ).Elem()
		cp.Set(rv)
		fits := true
		for i, out := range masked {
			nv, ok := assignable(typ.Field(i).Type, out)
			if !ok {
				fits = false
				break
			}
			cp.Field(i).Set(nv)
		}
		if fits {
			return cp.Interface(), true
		}
	}

	out := make(map[string]any, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		name := fieldName(field)
		if !field.IsExported() {
			if IsSensitiveKey(name) {
				out[name] = Mask
			}
			continue
		}
		if m, ok := masked[i]; ok {
			out[name] = m
			continue
		}
		out[name] = rv.Field(i).Interface()
	}
	return out, true
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return field.Name
	}
	return tag
}

// assignable converts v to a value that can be stored in a slot of type t.
func assignable(t reflect.Type, v any) (reflect.Value, bool) {
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(t), true
		}
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, false
	}
	return rv, true
}

func leaf(v any, keyHint string) (any, bool) {
	if IsSensitiveKey(keyHint) {
		return Mask, true
	}
	return v, false
}

// Attr masks a single attribute, descending into groups.
func Attr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, 0, len(group))
		for _, ga := range group {
			masked = append(masked, Attr(ga))
		}
		return slog.Group(a.Key, masked...)
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Mask)
	}
	switch a.Value.Kind() {
	case slog.KindAny:
		if _, ok := a.Value.Any().(error); ok {
			return a
		}
		return slog.Any(a.Key, Value(a.Value.Any(), a.Key))
	default:
		return a
	}
}

// Handler masks sensitive attributes before passing records on.
type Handler struct{ next slog.Handler }

// NewHandler wraps next with attribute masking.
func NewHandler(next slog.Handler) *Handler { return &Handler{next: next} }

// Middleware adapts NewHandler to handler pipelines.
func Middleware(next slog.Handler) slog.Handler { return NewHandler(next) }

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(Attr(a))
		return true
	})
	return h.next.Handle(ctx, nr)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = Attr(a)
	}
	return &Handler{next: h.next.WithAttrs(masked)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}
