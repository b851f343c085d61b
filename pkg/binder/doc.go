// Package binder decodes HTTP requests into typed structs for handler.Wrap.
//
// Each binder only touches fields carrying its own tag (json, form, file,
// query, path), so several binders can be combined on one request type.
package binder
