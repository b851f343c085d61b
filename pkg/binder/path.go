package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path binds route parameters to fields tagged `path:"name"`. The extractor
// is router specific, e.g. chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrInvalidPath)
		}

		return eachTagged(v, "path", func(field reflect.Value, sf reflect.StructField, name string) error {
			value := extractor(r, name)
			if value == "" {
				return nil
			}
			if err := setScalar(field, value); err != nil {
				return fmt.Errorf("%w: field %s: %v", ErrInvalidPath, sf.Name, err)
			}
			return nil
		})
	}
}
