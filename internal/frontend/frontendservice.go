package frontend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/jo-hoe/goregister/internal/backend/commands"
	"github.com/jo-hoe/goregister/internal/backend/database"
	"github.com/jo-hoe/goregister/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	mimePNG         = "image/png"
	registerPage    = "register.html"
	editPage        = "edit.html"
	viewPage        = "view.html"
	placeholderSize = 100
)

type option struct {
	Value string
	Label string
}

var (
	genderOptions = []option{
		{"male", "Male"}, {"female", "Female"}, {"other", "Other"},
	}
	stateOptions = []option{
		{"gujarat", "Gujarat"}, {"maharashtra", "Maharashtra"}, {"delhi", "Delhi"},
	}
	educationOptions = []option{
		{"highschool", "High School"}, {"bachelor", "Bachelor's Degree"}, {"master", "Master's Degree"}, {"phd", "PhD"},
	}
)

type formPageData struct {
	Banner     core.Banner
	Form       core.RegistrationForm
	ID         int64
	HasImage   bool
	ImageName  string
	Genders    []option
	States     []option
	Educations []option
}

type viewRow struct {
	*database.Registration
	HasImage  bool
	ImageName string
}

type viewPageData struct {
	Banner core.Banner
	Rows   []viewRow
}

type idParam struct {
	ID int64 `query:"id" form:"id" validate:"required,min=1"`
}

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig

	placeholderOnce sync.Once
	placeholder     []byte
	placeholderErr  error
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	// Every action goes through the root path, selected by ?action=
	e.GET("/", service.actionGetHandler)
	e.POST("/", service.actionPostHandler)

	e.GET("/uploads/:name", service.uploadHandler)
	e.GET("/thumbnails/:name", service.thumbnailHandler)
	e.GET("/placeholder.png", service.placeholderHandler)

	// Favicon (SVG) route
	e.GET("/icon.svg", service.iconHandler)
	e.GET("/probe", service.probeHandler)
}

func (service *FrontendService) actionGetHandler(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case core.ActionView:
		return service.viewHandler(ctx)
	case core.ActionEdit:
		return service.editHandler(ctx)
	case core.ActionDelete:
		return service.deleteHandler(ctx)
	default:
		return service.renderForm(ctx, http.StatusOK, registerPage, core.Banner{}, core.RegistrationForm{}, nil)
	}
}

func (service *FrontendService) actionPostHandler(ctx echo.Context) error {
	switch ctx.QueryParam("action") {
	case core.ActionRegister, "":
		return service.registerHandler(ctx)
	case core.ActionUpdate:
		return service.updateHandler(ctx)
	default:
		slog.Warn("actionPostHandler: unsupported action", "status", http.StatusBadRequest, "action", ctx.QueryParam("action"))
		return ctx.String(http.StatusBadRequest, "Unsupported action")
	}
}

func (service *FrontendService) registerHandler(ctx echo.Context) error {
	var form core.RegistrationForm
	if !service.limitBody(ctx) {
		return service.registerTooLarge(ctx, form)
	}
	if err := ctx.Bind(&form); err != nil {
		if isBodyTooLarge(err) {
			return service.registerTooLarge(ctx, form)
		}
		slog.Warn("registerHandler: failed to bind form", "status", http.StatusBadRequest, "error", err)
		return service.renderForm(ctx, http.StatusBadRequest, registerPage, core.Banner{Error: "Invalid form submission"}, form, nil)
	}

	upload, err := service.readUpload(ctx)
	if isBodyTooLarge(err) {
		return service.registerTooLarge(ctx, form)
	}
	if err != nil {
		slog.Error("registerHandler: failed to read uploaded file", "status", http.StatusBadRequest, "error", err)
		return service.renderForm(ctx, http.StatusBadRequest, registerPage, core.Banner{Error: "Error uploading file."}, form, nil)
	}

	if _, err := service.coreService.Register(ctx.Request().Context(), form, upload); err != nil {
		status := statusFor(err)
		logFailure("registerHandler: registration rejected", status, err)
		return service.renderForm(ctx, status, registerPage, core.ErrorBanner(err), form, nil)
	}

	return service.renderForm(ctx, http.StatusOK, registerPage, core.BannerFor(core.ActionRegister), core.RegistrationForm{}, nil)
}

func (service *FrontendService) viewHandler(ctx echo.Context) error {
	banner := core.BannerFromQuery(ctx.QueryParam("success"), ctx.QueryParam("error"))

	registrations, err := service.coreService.List(ctx.Request().Context())
	if err != nil {
		slog.Error("viewHandler: failed to list registrations", "status", http.StatusInternalServerError, "error", err)
		banner.Error = core.UserMessage(err)
	}

	rows := make([]viewRow, 0, len(registrations))
	for _, registration := range registrations {
		row := viewRow{Registration: registration, HasImage: service.coreService.HasImage(registration)}
		if row.HasImage {
			row.ImageName = *registration.ImageFilename
		}
		rows = append(rows, row)
	}

	service.setNoCache(ctx)
	return ctx.Render(http.StatusOK, viewPage, viewPageData{Banner: banner, Rows: rows})
}

func (service *FrontendService) editHandler(ctx echo.Context) error {
	id, ok := service.bindID(ctx)
	if !ok {
		return service.redirectToView(ctx, "", core.UserMessage(core.ErrNotFound))
	}

	registration, err := service.coreService.Get(ctx.Request().Context(), id)
	if err != nil {
		logFailure("editHandler: failed to load registration", statusFor(err), err)
		return service.redirectToView(ctx, "", core.UserMessage(err))
	}

	return service.renderForm(ctx, http.StatusOK, editPage, core.Banner{}, core.FormFromRegistration(registration), registration)
}

func (service *FrontendService) updateHandler(ctx echo.Context) error {
	if !service.limitBody(ctx) {
		return service.updateTooLarge(ctx)
	}
	var form core.RegistrationForm
	bindErr := ctx.Bind(&form)
	if isBodyTooLarge(bindErr) {
		return service.updateTooLarge(ctx)
	}

	id, ok := service.bindID(ctx)
	if !ok {
		return service.redirectToView(ctx, "", core.UserMessage(core.ErrNotFound))
	}
	if bindErr != nil {
		slog.Warn("updateHandler: failed to bind form", "status", http.StatusBadRequest, "error", bindErr)
		return service.renderEditWithError(ctx, id, form, core.Banner{Error: "Invalid form submission"})
	}

	upload, err := service.readUpload(ctx)
	if isBodyTooLarge(err) {
		return service.updateTooLarge(ctx)
	}
	if err != nil {
		slog.Error("updateHandler: failed to read uploaded file", "status", http.StatusBadRequest, "error", err, "id", id)
		return service.renderEditWithError(ctx, id, form, core.Banner{Error: "Error uploading file."})
	}

	_, err = service.coreService.Update(ctx.Request().Context(), id, form, upload)
	switch {
	case err == nil:
		return service.redirectToView(ctx, core.SuccessUpdated, "")
	case errors.Is(err, core.ErrNotFound):
		return service.redirectToView(ctx, "", core.UserMessage(err))
	default:
		logFailure("updateHandler: update rejected", statusFor(err), err)
		return service.renderEditWithError(ctx, id, form, core.ErrorBanner(err))
	}
}

func (service *FrontendService) deleteHandler(ctx echo.Context) error {
	id, ok := service.bindID(ctx)
	if !ok {
		return service.redirectToView(ctx, "", core.UserMessage(core.ErrNotFound))
	}

	if err := service.coreService.Delete(ctx.Request().Context(), id); err != nil {
		slog.Error("deleteHandler: failed to delete registration", "status", http.StatusInternalServerError, "id", id, "error", err)
		return service.redirectToView(ctx, "", core.UserMessage(err))
	}
	return service.redirectToView(ctx, core.SuccessDeleted, "")
}

func (service *FrontendService) uploadHandler(ctx echo.Context) error {
	path, err := service.coreService.ImagePath(pathParam(ctx, "name"))
	if err != nil {
		slog.Warn("uploadHandler: image not available", "status", http.StatusNotFound, "name", ctx.Param("name"), "error", err)
		return ctx.String(http.StatusNotFound, "Image not available")
	}
	return ctx.File(path)
}

func (service *FrontendService) thumbnailHandler(ctx echo.Context) error {
	name := pathParam(ctx, "name")
	thumbnail, err := service.coreService.Thumbnail(name)
	if err != nil || len(thumbnail) == 0 {
		slog.Warn("thumbnailHandler: thumbnail not available, serving placeholder", "name", name, "error", err)
		return service.placeholderHandler(ctx)
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, thumbnail)
}

func (service *FrontendService) placeholderHandler(ctx echo.Context) error {
	data, err := service.placeholderPNG()
	if err != nil {
		slog.Error("placeholderHandler: failed to render placeholder", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to render placeholder")
	}
	ctx.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return ctx.Blob(http.StatusOK, mimePNG, data)
}

func (service *FrontendService) placeholderPNG() ([]byte, error) {
	service.placeholderOnce.Do(func() {
		svg, err := assetsFS.ReadFile("views/placeholder.svg")
		if err != nil {
			service.placeholderErr = err
			return
		}
		service.placeholder, service.placeholderErr = commands.RenderSVGToPNG(svg, placeholderSize, placeholderSize)
	})
	return service.placeholder, service.placeholderErr
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}

func (service *FrontendService) probeHandler(ctx echo.Context) error {
	if !service.coreService.IsHealthy() {
		return ctx.String(http.StatusServiceUnavailable, "database unavailable")
	}
	return ctx.String(http.StatusOK, "OK")
}

func (service *FrontendService) renderForm(ctx echo.Context, status int, page string, banner core.Banner, form core.RegistrationForm, registration *database.Registration) error {
	data := formPageData{
		Banner:     banner,
		Form:       form,
		Genders:    genderOptions,
		States:     stateOptions,
		Educations: educationOptions,
	}
	if registration != nil {
		data.ID = registration.ID
		data.HasImage = service.coreService.HasImage(registration)
		if data.HasImage {
			data.ImageName = *registration.ImageFilename
		}
	}
	return ctx.Render(status, page, data)
}

// renderEditWithError shows the submitted values again together with the stored image.
func (service *FrontendService) renderEditWithError(ctx echo.Context, id int64, form core.RegistrationForm, banner core.Banner) error {
	registration, err := service.coreService.Get(ctx.Request().Context(), id)
	if err != nil {
		return service.redirectToView(ctx, "", core.UserMessage(err))
	}
	return service.renderForm(ctx, http.StatusUnprocessableEntity, editPage, banner, form, registration)
}

// limitBody caps the request body at the configured request size. It reports false
// when the declared length is already over the cap; the body is then left unread.
func (service *FrontendService) limitBody(ctx echo.Context) bool {
	limit := service.config.MaxRequestBytes()
	request := ctx.Request()
	if request.ContentLength > limit {
		return false
	}
	request.Body = http.MaxBytesReader(ctx.Response(), request.Body, limit)
	return true
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func (service *FrontendService) registerTooLarge(ctx echo.Context, form core.RegistrationForm) error {
	err := service.coreService.TooLargeError()
	slog.Info("registerHandler: request body too large", "status", http.StatusUnprocessableEntity, "content_length", ctx.Request().ContentLength)
	return service.renderForm(ctx, http.StatusUnprocessableEntity, registerPage, core.ErrorBanner(err), form, nil)
}

// updateTooLarge shows the stored values again. Only the query id is used since the
// body is not read.
func (service *FrontendService) updateTooLarge(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.QueryParam("id"), 10, 64)
	if err != nil || id < 1 {
		slog.Warn("updateHandler: request body too large without query id", "status", http.StatusBadRequest, "id", ctx.QueryParam("id"))
		return service.redirectToView(ctx, "", core.UserMessage(service.coreService.TooLargeError()))
	}
	registration, err := service.coreService.Get(ctx.Request().Context(), id)
	if err != nil {
		return service.redirectToView(ctx, "", core.UserMessage(err))
	}
	slog.Info("updateHandler: request body too large", "status", http.StatusUnprocessableEntity, "id", id, "content_length", ctx.Request().ContentLength)
	banner := core.ErrorBanner(service.coreService.TooLargeError())
	return service.renderForm(ctx, http.StatusUnprocessableEntity, editPage, banner, core.FormFromRegistration(registration), registration)
}

func (service *FrontendService) redirectToView(ctx echo.Context, success, errorText string) error {
	query := url.Values{"action": []string{core.ActionView}}
	if success != "" {
		query.Set("success", success)
	}
	if errorText != "" {
		query.Set("error", errorText)
	}
	return ctx.Redirect(http.StatusSeeOther, "/?"+query.Encode())
}

// bindID reads a positive id from the query string or the form body.
func (service *FrontendService) bindID(ctx echo.Context) (int64, bool) {
	raw := ctx.QueryParam("id")
	if raw == "" {
		raw = ctx.FormValue("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("bindID: invalid id", "status", http.StatusBadRequest, "id", raw)
		return 0, false
	}
	if err := ctx.Validate(&idParam{ID: id}); err != nil {
		slog.Warn("bindID: rejected id", "status", http.StatusBadRequest, "id", raw, "error", err)
		return 0, false
	}
	return id, true
}

// readUpload returns nil when no file was sent. Content beyond the configured limit is
// not read; one extra byte is kept so the size check can still reject it.
func (service *FrontendService) readUpload(ctx echo.Context) (*core.Upload, error) {
	file, err := ctx.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get uploaded file: %w", err)
	}
	if file.Filename == "" && file.Size == 0 {
		return nil, nil
	}

	data, err := readLimited(file, service.coreService.MaxUploadBytes()+1)
	if err != nil {
		return nil, err
	}
	return &core.Upload{Filename: file.Filename, Data: data}, nil
}

func readLimited(file *multipart.FileHeader, limit int64) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readUpload: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(src, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func pathParam(ctx echo.Context, name string) string {
	raw := ctx.Param(name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func statusFor(err error) int {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func logFailure(msg string, status int, err error) {
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "status", status, "error", err)
		return
	}
	slog.Info(msg, "status", status, "error", err)
}
