// Package handler provides type-safe HTTP request handling.
//
// A HandlerFunc receives a Context and a request value populated by binders,
// and returns a Response:
//
//	func createPost(ctx handler.Context, req CreatePostRequest) handler.Response {
//		post, err := blog.CreatePost(ctx, author, req.Payload())
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(post, handler.WithJSONStatus(http.StatusCreated))
//	}
//
//	r.Post("/posts/", handler.Wrap(createPost,
//		handler.WithBinders[CreatePostRequest](binder.JSON()),
//		handler.WithErrorHandler[CreatePostRequest](apiErrors),
//	))
//
// # Responses
//
//	handler.JSON(v)                     // v encoded as is
//	handler.JSONMessage(400, "...")     // {"message": "..."}
//	handler.Templ(component)            // HTML, or a datastar patch
//	handler.TemplMulti(patches...)      // several datastar patches
//	handler.Redirect("/post/1")         // 303, or a datastar redirect
//	handler.Empty()                     // 204
//	handler.Error(err)                  // delegates to the error handler
//
// # Errors
//
// Bind failures and Error responses reach the configured ErrorHandler.
// NewJSONErrorHandler writes {"message": ...} bodies for the API;
// NewErrorHandler renders HTML error pages, or toasts for datastar requests.
// Both classify errors in the same order: HTTPError, the injected
// Classifier, binder errors, then 500.
package handler
