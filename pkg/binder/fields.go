package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// eachTagged calls fn for every settable field of the struct behind v that
// carries tag. Fields tagged "-" or with an empty name are skipped, so
// several binders can fill one request struct.
func eachTagged(v any, tag string, fn func(field reflect.Value, sf reflect.StructField, name string) error) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := range rv.NumField() {
		field, sf := rv.Field(i), rt.Field(i)
		if !field.CanSet() {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
		if name == "" || name == "-" {
			continue
		}
		if err := fn(field, sf, name); err != nil {
			return err
		}
	}
	return nil
}

// bindValues fills fields tagged with tag from the first value under each
// name.
func bindValues(v any, tag string, values map[string][]string, bindErr error) error {
	return eachTagged(v, tag, func(field reflect.Value, sf reflect.StructField, name string) error {
		vals := values[name]
		if len(vals) == 0 {
			return nil
		}
		if err := setScalar(field, vals[0]); err != nil {
			return fmt.Errorf("%w: field %s: %v", bindErr, sf.Name, err)
		}
		return nil
	})
}

// setScalar parses s into a string, integer or bool field, allocating
// pointers as needed.
func setScalar(field reflect.Value, s string) error {
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return setScalar(field.Elem(), s)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", s)
		}
		field.SetUint(n)
	case reflect.Bool:
		// HTML checkboxes submit "on".
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "t", "true", "on", "yes":
			field.SetBool(true)
		case "", "0", "f", "false", "off", "no":
			field.SetBool(false)
		default:
			return fmt.Errorf("invalid bool %q", s)
		}
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
