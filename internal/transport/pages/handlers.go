package pages

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/seif-emam/deveolp-network/internal/catalog"
	"github.com/seif-emam/deveolp-network/internal/catalog/dashboard"
	"github.com/seif-emam/deveolp-network/internal/catalog/form"
	"github.com/seif-emam/deveolp-network/internal/catalog/images"
	"github.com/seif-emam/deveolp-network/internal/catalog/listing"
	"github.com/seif-emam/deveolp-network/internal/catalog/state"
	catalogerrors "github.com/seif-emam/deveolp-network/internal/errors"
	"github.com/seif-emam/deveolp-network/pkg/web"
)

const (
	msgInvalidProductID = "Invalid product ID"
	msgProductNotFound  = "Product not found"
)

type dashboardPage struct {
	Stats    dashboard.Stats
	HasStats bool
	Empty    bool
	Loading  bool
	Error    string
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	snapshot, err := h.deps.Service.Snapshot(r.Context())
	if err != nil && !snapshot.Loaded() {
		mLogger.ErrorContext(r.Context(), "Error loading products", "error", err)
		h.render(w, r, http.StatusBadGateway, "dashboard", dashboardPage{Error: state.LoadErrorMessage})
		return
	}

	page := dashboardPage{Loading: snapshot.Loading, Error: snapshot.Err}
	stats, err := dashboard.Compute(snapshot.Products)
	switch {
	case errors.Is(err, catalogerrors.ErrEmptyCatalog):
		page.Empty = true
	case err != nil:
		mLogger.ErrorContext(r.Context(), "Error computing dashboard", "error", err)
		page.Error = "Failed to compute dashboard"
	default:
		page.Stats = stats
		page.HasStats = true
	}
	h.render(w, r, http.StatusOK, "dashboard", page)
}

type productsPage struct {
	View     listing.View
	Rejected bool
	Error    string
}

// PageURL links to page p keeping the current filters.
func (p productsPage) PageURL(page int) string {
	q := url.Values{}
	if p.View.State.SearchTerm != "" {
		q.Set("q", p.View.State.SearchTerm)
	}
	if p.View.State.Category != "" {
		q.Set("category", p.View.State.Category)
	}
	q.Set("page", strconv.Itoa(page))
	return "/products?" + q.Encode()
}

func (h *handler) products(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	search := query.Get("q")
	category := query.Get("category")
	page := 1
	if raw := query.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page = n
		} else {
			page = 0
		}
	}

	snapshot, err := h.deps.Service.Snapshot(r.Context())
	if err != nil && !snapshot.Loaded() {
		mLogger.ErrorContext(r.Context(), "Error loading products", "error", err)
		h.render(w, r, http.StatusBadGateway, "products", productsPage{
			View:  listing.Build(nil, listing.NewState(), h.deps.PageSize),
			Error: state.LoadErrorMessage,
		})
		return
	}

	view, ok := listing.BuildPage(snapshot.Products, search, category, page, h.deps.PageSize)
	if !ok {
		mLogger.DebugContext(r.Context(), "Rejected page outside range", "page", page, "total_pages", view.TotalPages)
	}
	h.render(w, r, http.StatusOK, "products", productsPage{View: view, Rejected: !ok, Error: snapshot.Err})
}

type productPage struct {
	Product *catalog.Product
	Error   string
}

func (h *handler) product(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := web.ProductID(r)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		h.render(w, r, http.StatusBadRequest, "product", productPage{Error: msgInvalidProductID})
		return
	}

	found, err := h.deps.Service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrProductNotFound) {
			mLogger.WarnContext(r.Context(), "Product not found", "ID", id)
			h.render(w, r, http.StatusNotFound, "product", productPage{Error: msgProductNotFound})
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving product", "ID", id, "error", err)
		h.render(w, r, http.StatusBadGateway, "product", productPage{Error: form.MsgLoadProductFailed})
		return
	}
	h.render(w, r, http.StatusOK, "product", productPage{Product: found})
}

type editPage struct {
	form.View
	InvalidID bool
}

func (h *handler) newController(id int) *form.Controller {
	return form.New(id, h.deps.Service, h.deps.Images, h.logger, form.WithMaxImageBytes(h.deps.MaxImageBytes))
}

func (h *handler) editForm(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := web.ProductID(r)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		h.render(w, r, http.StatusBadRequest, "edit", editPage{InvalidID: true, View: form.View{Error: msgInvalidProductID}})
		return
	}

	ctrl := h.newController(id)
	status := http.StatusOK
	if err := ctrl.Load(r.Context()); err != nil && ctrl.View().Phase == form.PhaseFailed {
		status = http.StatusBadGateway
	}
	h.render(w, r, status, "edit", editPage{View: ctrl.View()})
}

func (h *handler) submitEdit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, err := web.ProductID(r)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid product ID", "error", err)
		h.render(w, r, http.StatusBadRequest, "edit", editPage{InvalidID: true, View: form.View{Error: msgInvalidProductID}})
		return
	}
	ctrl := h.newController(id)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestBytes())
	in, err := h.readInput(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			mLogger.WarnContext(r.Context(), "Update form too large", "limit", maxErr.Limit)
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		mLogger.WarnContext(r.Context(), "Error parsing update form", "error", err)
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	if r.PostFormValue("action") == "cancel" {
		ctrl.Cancel()
		http.Redirect(w, r, fmt.Sprintf("/products/%d", id), http.StatusSeeOther)
		return
	}

	_, err = ctrl.Submit(r.Context(), in)
	if err == nil {
		h.render(w, r, http.StatusOK, "edit", editPage{View: ctrl.View()})
		return
	}

	_ = ctrl.LoadCategories(r.Context())
	var vErr *form.ValidationError
	if errors.As(err, &vErr) {
		h.render(w, r, http.StatusUnprocessableEntity, "edit", editPage{View: ctrl.View()})
		return
	}
	h.render(w, r, http.StatusBadGateway, "edit", editPage{View: ctrl.View()})
}

func (h *handler) maxImageBytes() int64 {
	if h.deps.MaxImageBytes > 0 {
		return h.deps.MaxImageBytes
	}
	return form.DefaultMaxImageBytes
}

// maxRequestBytes leaves room for an oversized image so it can be reported as a field error.
func (h *handler) maxRequestBytes() int64 {
	return 2*h.maxImageBytes() + 1<<20
}

// readInput parses the multipart form. Image bytes are only read when within the size limit.
func (h *handler) readInput(r *http.Request) (form.Input, error) {
	if err := r.ParseMultipartForm(h.maxImageBytes()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return form.Input{}, err
	}
	if r.PostForm == nil {
		if err := r.ParseForm(); err != nil {
			return form.Input{}, err
		}
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("price")), 64)
	if err != nil {
		price = 0
	}
	in := form.Input{
		Title:         strings.TrimSpace(r.PostFormValue("title")),
		Price:         price,
		Category:      r.PostFormValue("category"),
		Description:   strings.TrimSpace(r.PostFormValue("description")),
		ExistingImage: r.PostFormValue("currentImage"),
	}
	if r.PostFormValue("removeImage") != "" {
		in.ExistingImage = ""
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil
		}
		return form.Input{}, err
	}
	defer file.Close()

	upload, err := h.readUpload(file, header)
	if err != nil {
		return form.Input{}, err
	}
	in.Upload = upload
	return in, nil
}

func (h *handler) readUpload(file multipart.File, header *multipart.FileHeader) (*images.Upload, error) {
	upload := &images.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if header.Size > h.maxImageBytes() {
		return upload, nil
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxImageBytes()+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	upload.Data = data
	return upload, nil
}
