// Package form drives the product update form: loading, validation and submission.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/seif-emam/deveolp-network/internal/catalog"
	"github.com/seif-emam/deveolp-network/internal/catalog/images"
	"golang.org/x/sync/errgroup"
)

// CloseDelay is how long the success message stays visible before the form closes.
const CloseDelay = 1500 * time.Millisecond

const (
	MsgLoadCategoriesFailed = "Failed to load categories"
	MsgLoadProductFailed    = "Failed to load product"
	MsgUpdateSucceeded      = "Product updated successfully!"
	MsgUpdateFailed         = "Failed to update product"
)

// ErrSubmitInProgress is returned when Submit is called while a submission is running.
var ErrSubmitInProgress = errors.New("submission already in progress")

// Phase is the lifecycle stage of the form.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePopulated
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhasePopulated:
		return "populated"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Catalog is what the form needs from the catalog service.
type Catalog interface {
	FindByID(ctx context.Context, id int) (*catalog.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id int, update catalog.ProductUpdate) (*catalog.Product, error)
}

// Input is one submission of the form.
// The image is either the existing reference or a newly selected file.
type Input struct {
	Title         string         `form:"title"       validate:"required,min=3"`
	Price         float64        `form:"price"       validate:"gt=0,finite"`
	Category      string         `form:"category"    validate:"required"`
	Description   string         `form:"description" validate:"required,min=10"`
	ExistingImage string         `form:"-"`
	Upload        *images.Upload `form:"-"`
}

// Values are the field values shown in the form.
type Values struct {
	Title        string
	Price        float64
	Category     string
	Description  string
	CurrentImage string
}

// View is a snapshot of the controller for rendering.
type View struct {
	ProductID   int
	Phase       Phase
	Values      Values
	Categories  []string
	Error       string
	Success     string
	FieldErrors map[string]string
	CloseDelay  time.Duration
}

// Controller holds the state of one update form bound to a product id.
type Controller struct {
	productID     int
	catalog       Catalog
	store         images.Store
	validate      *validator.Validate
	logger        *slog.Logger
	maxImageBytes int64
	closeDelay    time.Duration
	onUpdated     func(catalog.Product)
	onClose       func()

	mu          sync.Mutex
	phase       Phase
	values      Values
	categories  []string
	errMsg      string
	successMsg  string
	fieldErrors map[string]string
	closeTimer  *time.Timer
}

// Option customises a Controller.
type Option func(*Controller)

// WithMaxImageBytes overrides DefaultMaxImageBytes.
func WithMaxImageBytes(n int64) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxImageBytes = n
		}
	}
}

// WithOnUpdated registers a callback receiving the updated product.
func WithOnUpdated(fn func(catalog.Product)) Option {
	return func(c *Controller) { c.onUpdated = fn }
}

// WithOnClose registers a callback run when the form closes,
// either on Cancel or CloseDelay after a successful submission.
func WithOnClose(fn func()) Option {
	return func(c *Controller) { c.onClose = fn }
}

// WithCloseDelay overrides CloseDelay.
func WithCloseDelay(d time.Duration) Option {
	return func(c *Controller) { c.closeDelay = d }
}

// New creates a controller bound to productID.
func New(productID int, cat Catalog, store images.Store, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		productID:     productID,
		catalog:       cat,
		store:         store,
		validate:      newValidator(),
		logger:        logger.With("component", "update-form", "product_id", productID),
		maxImageBytes: DefaultMaxImageBytes,
		closeDelay:    CloseDelay,
		categories:    []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches the categories and the product concurrently and populates the form.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.phase = PhaseLoading
	c.errMsg = ""
	c.mu.Unlock()

	var (
		categories []string
		product    *catalog.Product
		catErr     error
		prodErr    error
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		categories, catErr = c.catalog.Categories(gCtx)
		return nil
	})
	g.Go(func() error {
		product, prodErr = c.catalog.FindByID(gCtx, c.productID)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if catErr != nil {
		c.logger.ErrorContext(ctx, "Failed to load categories", "error", catErr)
		c.errMsg = MsgLoadCategoriesFailed
	} else {
		c.categories = categories
	}

	if prodErr != nil {
		c.logger.ErrorContext(ctx, "Failed to load product", "error", prodErr)
		c.errMsg = MsgLoadProductFailed
		c.phase = PhaseFailed
		return errors.Join(catErr, prodErr)
	}

	c.values = Values{
		Title:        product.Title,
		Price:        product.Price,
		Category:     product.Category,
		Description:  product.Description,
		CurrentImage: product.Image,
	}
	c.phase = PhasePopulated
	return catErr
}

// LoadCategories fetches only the category list, leaving the field values untouched.
func (c *Controller) LoadCategories(ctx context.Context) error {
	categories, err := c.catalog.Categories(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to load categories", "error", err)
		c.errMsg = MsgLoadCategoriesFailed
		return err
	}
	c.categories = categories
	return nil
}

// Submit validates in and, when valid, replaces the product.
// Invalid input returns a *ValidationError and never reaches the network.
// After a failed update the form can be submitted again.
func (c *Controller) Submit(ctx context.Context, in Input) (*catalog.Product, error) {
	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	c.phase = PhaseValidating
	c.errMsg = ""
	c.successMsg = ""
	c.fieldErrors = nil
	c.values = Values{
		Title:        in.Title,
		Price:        in.Price,
		Category:     in.Category,
		Description:  in.Description,
		CurrentImage: in.ExistingImage,
	}

	if err := validateInput(c.validate, in, c.maxImageBytes); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			c.fieldErrors = vErr.Fields
		}
		c.phase = PhasePopulated
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "Validation errors occurred", "error", err)
		return nil, err
	}
	c.phase = PhaseSubmitting
	c.mu.Unlock()

	updated, err := c.submit(ctx, in)

	c.mu.Lock()
	if err != nil {
		c.logger.ErrorContext(ctx, "Error updating product", "error", err)
		c.errMsg = MsgUpdateFailed
		c.phase = PhaseFailed
		c.mu.Unlock()
		return nil, err
	}
	c.successMsg = MsgUpdateSucceeded
	c.phase = PhaseSucceeded
	c.values.CurrentImage = updated.Image
	onClose := c.onClose
	if onClose != nil {
		c.closeTimer = time.AfterFunc(c.closeDelay, onClose)
	}
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Product updated successfully", "title", updated.Title)
	if c.onUpdated != nil {
		c.onUpdated(*updated)
	}
	return updated, nil
}

func (c *Controller) submit(ctx context.Context, in Input) (*catalog.Product, error) {
	image := in.ExistingImage
	if in.Upload != nil {
		ref, err := c.store.Put(ctx, *in.Upload)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		image = ref
	}
	update := catalog.ProductUpdate{
		Title:       in.Title,
		Price:       in.Price,
		Description: in.Description,
		Category:    in.Category,
		Image:       image,
	}
	return c.catalog.Update(ctx, c.productID, update)
}

// Cancel closes the form without submitting.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.phase = PhaseIdle
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
	onClose := c.onClose
	c.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

// View returns the current state for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	fieldErrors := make(map[string]string, len(c.fieldErrors))
	for k, v := range c.fieldErrors {
		fieldErrors[k] = v
	}
	return View{
		ProductID:   c.productID,
		Phase:       c.phase,
		Values:      c.values,
		Categories:  c.categories,
		Error:       c.errMsg,
		Success:     c.successMsg,
		FieldErrors: fieldErrors,
		CloseDelay:  c.closeDelay,
	}
}
