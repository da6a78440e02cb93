package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/pdfchat/internal/logger"
)

// DocumentID is the {id} path parameter.
type DocumentID = string

// GetUsageParams defines parameters for GetUsage.
type GetUsageParams struct {
	// Period is "day" (default) or "month".
	Period *string `form:"period,omitempty" json:"period,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// ListDocuments handles GET /documents.
	ListDocuments(w http.ResponseWriter, r *http.Request)
	// UploadDocument handles POST /documents.
	UploadDocument(w http.ResponseWriter, r *http.Request)
	// GetDocument handles GET /documents/{id}.
	GetDocument(w http.ResponseWriter, r *http.Request, id DocumentID)
	// DeleteDocument handles DELETE /documents/{id}.
	DeleteDocument(w http.ResponseWriter, r *http.Request, id DocumentID)
	// ProcessDocument handles POST /documents/{id}/process.
	ProcessDocument(w http.ResponseWriter, r *http.Request, id DocumentID)
	// ListChunks handles GET /documents/{id}/chunks.
	ListChunks(w http.ResponseWriter, r *http.Request, id DocumentID)
	// Chat handles POST /documents/{id}/chat.
	Chat(w http.ResponseWriter, r *http.Request, id DocumentID)
	// GetUsage handles GET /usage.
	GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams)
	// HealthCheck handles GET /health.
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics handles GET /metrics.
	Metrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts requests into typed handler calls.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, middleware := range siw.HandlerMiddlewares {
		h = middleware(h)
	}
	h.ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (DocumentID, bool) {
	var id DocumentID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return "", false
	}
	return id, true
}

// ListDocuments operation middleware.
func (siw *ServerInterfaceWrapper) ListDocuments(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.ListDocuments))
}

// UploadDocument operation middleware.
func (siw *ServerInterfaceWrapper) UploadDocument(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.UploadDocument))
}

// GetDocument operation middleware.
func (siw *ServerInterfaceWrapper) GetDocument(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.GetDocument)
}

// DeleteDocument operation middleware.
func (siw *ServerInterfaceWrapper) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.DeleteDocument)
}

// ProcessDocument operation middleware.
func (siw *ServerInterfaceWrapper) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.ProcessDocument)
}

// ListChunks operation middleware.
func (siw *ServerInterfaceWrapper) ListChunks(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.ListChunks)
}

// Chat operation middleware.
func (siw *ServerInterfaceWrapper) Chat(w http.ResponseWriter, r *http.Request) {
	siw.withID(w, r, siw.Handler.Chat)
}

func (siw *ServerInterfaceWrapper) withID(
	w http.ResponseWriter, r *http.Request,
	h func(w http.ResponseWriter, r *http.Request, id DocumentID),
) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	r = r.WithContext(logpkg.With(r.Context(), zap.String("document_id", id)))
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, id)
	}))
}

// GetUsage operation middleware.
func (siw *ServerInterfaceWrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "period", Err: err})
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetUsage(w, r, params)
	}))
}

// HealthCheck operation middleware.
func (siw *ServerInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.HealthCheck))
}

// Metrics operation middleware.
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Metrics))
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates an http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates an http.Handler with additional options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Get(base+"/documents", wrapper.ListDocuments)
		r.Post(base+"/documents", wrapper.UploadDocument)
		r.Get(base+"/documents/{id}", wrapper.GetDocument)
		r.Delete(base+"/documents/{id}", wrapper.DeleteDocument)
		r.Post(base+"/documents/{id}/process", wrapper.ProcessDocument)
		r.Get(base+"/documents/{id}/chunks", wrapper.ListChunks)
		r.Post(base+"/documents/{id}/chat", wrapper.Chat)
		r.Get(base+"/usage", wrapper.GetUsage)
		r.Get(base+"/health", wrapper.HealthCheck)
		r.Get(base+"/metrics", wrapper.Metrics)
	})
	return r
}
