package handler

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

// TemplOption is an alias for datastar's PatchElementOption
type TemplOption = datastar.PatchElementOption

// WithTarget sets the selector of the element to patch.
func WithTarget(selector string) TemplOption {
	return datastar.WithSelector(selector)
}

// WithPatchMode sets how the component is merged into the DOM.
func WithPatchMode(mode datastar.ElementPatchMode) TemplOption {
	return datastar.WithMode(mode)
}

// TemplPatch is a component with its own patch options, for TemplMulti.
type TemplPatch struct {
	Component templ.Component
	Options   []TemplOption
}

// Patch creates a TemplPatch.
func Patch(component templ.Component, opts ...TemplOption) TemplPatch {
	return TemplPatch{Component: component, Options: opts}
}

type templResponse struct {
	status    int
	component templ.Component
	options   []TemplOption
}

// Render outputs component via SSE for DataStar or HTML for regular requests
func (t templResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		return newSSE(w, r).PatchElementTempl(t.component, t.options...)
	}
	return renderHTML(w, r, t.status, t.component)
}

// Templ renders component as a page, or patches it in for datastar requests.
//
//	return handler.Templ(views.Comment(c),
//		handler.WithTarget("#comments"),
//		handler.WithPatchMode(handler.PatchAppend),
//	)
func Templ(component templ.Component, opts ...TemplOption) Response {
	return templResponse{status: http.StatusOK, component: component, options: opts}
}

// TemplStatus renders component as a page with a custom status code.
func TemplStatus(status int, component templ.Component, opts ...TemplOption) Response {
	return templResponse{status: status, component: component, options: opts}
}

type templMultiResponse struct {
	patches []TemplPatch
}

func (t templMultiResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if IsDataStar(r) {
		sse := newSSE(w, r)
		for _, patch := range t.patches {
			if err := sse.PatchElementTempl(patch.Component, patch.Options...); err != nil {
				return err
			}
		}
		return nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, patch := range t.patches {
		if err := patch.Component.Render(r.Context(), w); err != nil {
			return err
		}
	}
	return nil
}

// TemplMulti sends one patch per component for datastar requests and
// concatenates them otherwise.
func TemplMulti(patches ...TemplPatch) Response {
	return templMultiResponse{patches: patches}
}

// renderHTML buffers the component so a render failure can still be turned
// into an error page.
func renderHTML(w http.ResponseWriter, r *http.Request, status int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(r.Context(), buf); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
