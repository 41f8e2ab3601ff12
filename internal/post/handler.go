package post

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/journeys/service/internal/middleware"
	"github.com/journeys/service/internal/response"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// Handler holds HTTP handlers for post endpoints.
type Handler struct {
	svc       *Service
	validate  *validator.Validate
	maxUpload int64
	log       *zap.Logger
}

// NewHandler creates a new post Handler. maxUpload bounds the multipart body.
func NewHandler(svc *Service, maxUpload int64, log *zap.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	return &Handler{svc: svc, validate: v, maxUpload: maxUpload, log: log}
}

// Routes returns the /posts router. requireAuth guards mutations,
// optionalAuth lets reads know the viewer, uploadLimit throttles uploads.
func (h *Handler) Routes(requireAuth, optionalAuth, uploadLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(optionalAuth).Get("/", h.ListPosts)
	r.With(optionalAuth).Get("/{id}", h.GetPost)
	r.Get("/{id}/image", h.GetImage)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.With(uploadLimit).Post("/", h.CreatePost)
		r.Delete("/{id}", h.DeletePost)
		r.Patch("/{id}/like", h.ToggleLike)
	})
	return r
}

type createPostForm struct {
	Description string `form:"description" validate:"required,max=2200"`
}

type deleteData struct {
	Message string `json:"message" example:"post deleted successfully"`
}

// CreatePost godoc
//
//	@Summary		Create post
//	@Description	Upload an image with a description. The image is re-encoded to JPEG before storage.
//	@Tags			posts
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image (jpeg, png, webp, gif)"
//	@Param			description	formData	string	true	"Post description"
//	@Success		201			{object}	response.Envelope{data=View}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		413			{object}	response.Envelope
//	@Failure		429			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(w, "upload exceeds size limit")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	form := createPostForm{Description: strings.TrimSpace(r.FormValue("description"))}
	fields := h.validationFields(form)

	file, _, err := r.FormFile("file")
	if err != nil {
		fields["file"] = "image file is required"
	}
	if len(fields) > 0 {
		response.Invalid(w, fields)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "could not read uploaded file")
		return
	}

	view, err := h.svc.CreatePost(r.Context(), caller, data, http.DetectContentType(data), form.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, view)
}

// ListPosts godoc
//
//	@Summary		List feed
//	@Description	Posts newest first. Image URLs are presigned and expire.
//	@Tags			posts
//	@Produce		json
//	@Param			page	query		int	false	"Page number (1-based)"	default(1)
//	@Param			limit	query		int	false	"Page size (max 50)"	default(10)
//	@Success		200		{object}	response.Envelope{data=[]View}
//	@Failure		500		{object}	response.Envelope
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", defaultPage)
	limit := queryInt(r, "limit", defaultLimit)

	views, err := h.svc.ListFeed(r.Context(), page, limit, viewerID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, views)
}

// GetPost godoc
//
//	@Summary	Get post
//	@Tags		posts
//	@Produce	json
//	@Param		id	path		string	true	"Post ID"
//	@Success	200	{object}	response.Envelope{data=View}
//	@Failure	404	{object}	response.Envelope
//	@Failure	500	{object}	response.Envelope
//	@Router		/posts/{id} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetPost(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, view)
}

// GetImage godoc
//
//	@Summary		Redirect to post image
//	@Description	Redirects to a freshly presigned image URL.
//	@Tags			posts
//	@Param			id	path	string	true	"Post ID"
//	@Success		302	{string}	string	"Found"
//	@Failure		404	{object}	response.Envelope
//	@Router			/posts/{id}/image [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.ImageURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, u, http.StatusFound)
}

// DeletePost godoc
//
//	@Summary		Delete post
//	@Description	Deletes the post and its image. Only the author may delete.
//	@Tags			posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{object}	response.Envelope{data=deleteData}
//	@Failure		401	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [delete]
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.svc.DeletePost(r.Context(), chi.URLParam(r, "id"), caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, deleteData{Message: "post deleted successfully"})
}

// ToggleLike godoc
//
//	@Summary		Like or unlike post
//	@Tags			posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{object}	response.Envelope{data=LikeResult}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id}/like [patch]
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	res, err := h.svc.ToggleLike(r.Context(), chi.URLParam(r, "id"), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, res)
}

// writeError maps error kinds to status codes. Internal detail is logged,
// never written to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *ValidationError
	switch {
	case errors.As(err, &invalid):
		response.Invalid(w, invalid.Fields)
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, "invalid input")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "post not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "only the author can do this")
	default:
		h.log.Error("post request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.InternalError(w)
	}
}

func (h *Handler) validationFields(form createPostForm) map[string]string {
	fields := make(map[string]string)
	err := h.validate.Struct(form)
	if err == nil {
		return fields
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["form"] = "invalid form"
		return fields
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = fe.Field() + " is required"
		case "max":
			fields[fe.Field()] = fe.Field() + " must be at most " + fe.Param() + " characters"
		default:
			fields[fe.Field()] = "invalid value"
		}
	}
	return fields
}

// queryInt parses a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func viewerID(r *http.Request) string {
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		return id.UserID
	}
	return ""
}
