package traceback

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// maxReprDepth bounds how deep Repr descends into nested containers.
const maxReprDepth = 16

// Repr is a best-effort single-line representation of v.
// ok is false when producing it panicked, e.g. a String method that blows up.
//
// Composite values are printed the way fmt prints them with %+v, except that a map
// or slice already being printed is shown as "map[...]" or "[...]" instead of being
// entered again, so self-referencing values terminate.
func Repr(v any) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	switch x := v.(type) {
	case nil:
		return "nil", true
	case string:
		return strconv.Quote(x), true
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	case fmt.Formatter:
		return fmt.Sprintf("%+v", x), true
	}

	p := reprPrinter{path: map[reprVisit]struct{}{}}
	p.print(reflect.ValueOf(v), 0)
	return p.b.String(), true
}

type reprVisit struct {
	ptr uintptr
	typ reflect.Type
}

type reprPrinter struct {
	b    strings.Builder
	path map[reprVisit]struct{}
}

// enter marks a map or slice as being printed. It reports false when rv is already on the path.
func (p *reprPrinter) enter(rv reflect.Value) (leave func(), ok bool) {
	ptr := rv.Pointer()
	if ptr == 0 {
		return func() {}, true
	}
	key := reprVisit{ptr: ptr, typ: rv.Type()}
	if _, seen := p.path[key]; seen {
		return nil, false
	}
	p.path[key] = struct{}{}
	return func() { delete(p.path, key) }, true
}

func (p *reprPrinter) print(rv reflect.Value, depth int) {
	if !rv.IsValid() {
		p.b.WriteString("<nil>")
		return
	}
	if depth > 0 && rv.CanInterface() && p.methods(rv) {
		return
	}

	switch rv.Kind() {
	case reflect.Bool:
		p.b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		p.b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		p.b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		p.b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 32))
	case reflect.Float64:
		p.b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Complex64:
		p.b.WriteString(strconv.FormatComplex(rv.Complex(), 'g', -1, 64))
	case reflect.Complex128:
		p.b.WriteString(strconv.FormatComplex(rv.Complex(), 'g', -1, 128))
	case reflect.String:
		p.b.WriteString(rv.String())
	case reflect.Interface:
		p.print(rv.Elem(), depth)
	case reflect.Map:
		p.printMap(rv, depth)
	case reflect.Struct:
		p.printStruct(rv, depth)
	case reflect.Slice, reflect.Array:
		p.printList(rv, depth)
	case reflect.Pointer:
		// Only the outermost pointer is followed, as fmt does; deeper ones print as addresses.
		if depth == 0 && !rv.IsNil() {
			switch rv.Elem().Kind() {
			case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map:
				p.b.WriteByte('&')
				p.print(rv.Elem(), depth+1)
				return
			}
		}
		p.pointer(rv)
	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		p.pointer(rv)
	default:
		p.b.WriteString(rv.Type().String())
	}
}

func (p *reprPrinter) methods(rv reflect.Value) (handled bool) {
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		defer func() {
			if recover() != nil {
				p.b.WriteString("<nil>")
				handled = true
			}
		}()
	}
	switch x := rv.Interface().(type) {
	case error:
		p.b.WriteString(x.Error())
	case fmt.Stringer:
		p.b.WriteString(x.String())
	case fmt.Formatter:
		fmt.Fprintf(&p.b, "%+v", x)
	default:
		return false
	}
	return true
}

func (p *reprPrinter) printMap(rv reflect.Value, depth int) {
	if depth >= maxReprDepth {
		p.b.WriteString("map[...]")
		return
	}
	leave, ok := p.enter(rv)
	if !ok {
		p.b.WriteString("map[...]")
		return
	}
	defer leave()

	type entry struct{ key, value reflect.Value }
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{iter.Key(), iter.Value()})
	}
	slices.SortStableFunc(entries, func(a, b entry) int { return compareKeys(a.key, b.key) })

	p.b.WriteString("map[")
	for i, e := range entries {
		if i > 0 {
			p.b.WriteByte(' ')
		}
		p.print(e.key, depth+1)
		p.b.WriteByte(':')
		p.print(e.value, depth+1)
	}
	p.b.WriteByte(']')
}

func (p *reprPrinter) printStruct(rv reflect.Value, depth int) {
	if depth >= maxReprDepth {
		p.b.WriteString("{...}")
		return
	}
	typ := rv.Type()
	p.b.WriteByte('{')
	for i := 0; i < rv.NumField(); i++ {
		if i > 0 {
			p.b.WriteByte(' ')
		}
		p.b.WriteString(typ.Field(i).Name)
		p.b.WriteByte(':')
		field := rv.Field(i)
		if field.Kind() == reflect.Interface && !field.IsNil() {
			field = field.Elem()
		}
		p.print(field, depth+1)
	}
	p.b.WriteByte('}')
}

func (p *reprPrinter) printList(rv reflect.Value, depth int) {
	if depth >= maxReprDepth {
		p.b.WriteString("[...]")
		return
	}
	if rv.Kind() == reflect.Slice {
		leave, ok := p.enter(rv)
		if !ok {
			p.b.WriteString("[...]")
			return
		}
		defer leave()
	}

	p.b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			p.b.WriteByte(' ')
		}
		p.print(rv.Index(i), depth+1)
	}
	p.b.WriteByte(']')
}

func (p *reprPrinter) pointer(rv reflect.Value) {
	if rv.IsNil() {
		p.b.WriteString("<nil>")
		return
	}
	p.b.WriteString("0x")
	p.b.WriteString(strconv.FormatUint(uint64(rv.Pointer()), 16))
}

// compareKeys orders map keys the way fmt sorts them for the common key kinds.
func compareKeys(a, b reflect.Value) int {
	if a.Kind() == reflect.Interface {
		a = a.Elem()
	}
	if b.Kind() == reflect.Interface {
		b = b.Elem()
	}
	if !a.IsValid() || !b.IsValid() {
		return cmp.Compare(boolRank(a.IsValid()), boolRank(b.IsValid()))
	}
	if a.Kind() != b.Kind() {
		return cmp.Compare(a.Kind(), b.Kind())
	}

	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.String:
		return cmp.Compare(a.String(), b.String())
	case reflect.Bool:
		return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool()))
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return cmp.Compare(a.Pointer(), b.Pointer())
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
