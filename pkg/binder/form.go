package binder

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"
)

// DefaultMaxMemory is the default maximum memory used for parsing multipart forms (10MB).
const DefaultMaxMemory = 10 << 20

var fileHeaderType = reflect.TypeOf((*multipart.FileHeader)(nil))

// Form binds application/x-www-form-urlencoded and multipart/form-data bodies.
//
// Fields tagged `form:"name"` receive values; fields of type
// *multipart.FileHeader (or a slice of them) tagged `file:"name"` receive
// uploads. Requests without a body (GET, HEAD) bind nothing.
//
//	type ProfileForm struct {
//		Name  string                `form:"name"`
//		Photo *multipart.FileHeader `file:"photo"`
//	}
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			return nil
		}

		mediaType, err := mediaTypeOf(r)
		if err != nil {
			return err
		}

		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			return bindValues(v, "form", r.PostForm, ErrInvalidForm)

		case "multipart/form-data":
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			if err := bindValues(v, "form", r.MultipartForm.Value, ErrInvalidForm); err != nil {
				return err
			}
			return bindFiles(v, r.MultipartForm.File)

		default:
			return fmt.Errorf("%w: got %s, expected a form", ErrUnsupportedMediaType, mediaType)
		}
	}
}

func bindFiles(v any, files map[string][]*multipart.FileHeader) error {
	return eachTagged(v, "file", func(field reflect.Value, sf reflect.StructField, name string) error {
		headers := files[name]
		if len(headers) == 0 {
			return nil
		}
		switch {
		case sf.Type == fileHeaderType:
			field.Set(reflect.ValueOf(headers[0]))
		case sf.Type.Kind() == reflect.Slice && sf.Type.Elem() == fileHeaderType:
			field.Set(reflect.ValueOf(headers))
		default:
			return fmt.Errorf("%w: field %s: unsupported file field type %s", ErrInvalidForm, sf.Name, sf.Type)
		}
		return nil
	})
}
