// Package editor drives the shipment record view: search, create, update
// and the per-field code rendering of the current shipment. It is the only
// place that turns failures into user-facing notices.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vvatanabe/shipcode"
	"github.com/vvatanabe/shipcode/internal/prefs"
	"github.com/vvatanabe/shipcode/internal/render"
)

var (
	// ErrStaleResponse is returned when a newer request was issued while
	// this one was in flight. Its result was discarded.
	ErrStaleResponse = errors.New("response superseded by a newer request")
	ErrClosed        = errors.New("editor is closed")
	ErrBusy          = errors.New("a save is already in progress")
	ErrEmptySearch   = errors.New("search term is blank")
	ErrNoShipment    = errors.New("no shipment is loaded")
)

type UnknownFieldError struct {
	ID string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("no field with toggle id %q in the current shipment.", e.ID)
}

type Mode int

const (
	ModeView Mode = iota
	ModeCreate
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}
	return "view"
}

type NoticeKind string

const (
	NoticeError    NoticeKind = "error"
	NoticeNotFound NoticeKind = "not-found"
	NoticeSuccess  NoticeKind = "success"
)

// Notice is a message for the user. A not-found notice is a prompt that
// ConfirmNotFound answers.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// ConfigStore is the API configuration the editor can change at runtime.
type ConfigStore interface {
	Current() shipcode.APIConfig
	Update(cfg shipcode.APIConfig) shipcode.APIConfig
	Reset() shipcode.APIConfig
}

type Options struct {
	Logger *slog.Logger
	Config ConfigStore
}

func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithConfig(cfg ConfigStore) func(*Options) {
	return func(o *Options) {
		o.Config = cfg
	}
}

// Editor is safe for concurrent use. Network calls run without holding the
// state lock; their results are applied only if no newer request was
// issued and the editor is still open.
type Editor struct {
	mu     sync.Mutex
	client shipcode.Client
	prefs  *prefs.Preferences
	config ConfigStore
	logger *slog.Logger

	mode             Mode
	form             Form
	validationErrors []string
	notice           *Notice
	searchTerm       string
	shipment         *shipcode.Shipment
	board            *board
	toggles          map[string]bool
	theme            render.RGBColor

	seq       uint64
	searching bool
	saving    bool

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func New(client shipcode.Client, p *prefs.Preferences, optFns ...func(*Options)) *Editor {
	o := &Options{Logger: slog.Default()}
	for _, opt := range optFns {
		opt(o)
	}
	if p == nil {
		p = prefs.New(nil, o.Logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Editor{
		client:     client,
		prefs:      p,
		config:     o.Config,
		logger:     o.Logger,
		form:       NewForm(),
		searchTerm: p.SearchTerm(),
		toggles:    make(map[string]bool),
		theme:      render.DefaultThemeColor,
		ctx:        ctx,
		cancel:     cancel,
	}
	if c, err := render.ParseHexColor(p.ThemeColor()); err == nil {
		e.theme = c
	} else {
		e.logger.Warn("ignoring saved theme colour", "error", err)
	}
	return e
}

// bind derives a context that is also cancelled by Close.
func (e *Editor) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (e *Editor) setNotice(kind NoticeKind, title, message string) {
	e.notice = &Notice{Kind: kind, Title: title, Message: message}
}

func errorMessage(err error, fallback string) string {
	if apiErr, ok := shipcode.AsAPIError(err); ok {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// Search looks term up as a delivery number, then as a shipment number.
// Blank input is rejected without a network call.
func (e *Editor) Search(ctx context.Context, raw string) (*shipcode.Shipment, error) {
	term := strings.TrimSpace(raw)
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if term == "" {
		e.setNotice(NoticeError, "Search Error", "Please enter a shipment or delivery number to search.")
		e.mu.Unlock()
		return nil, ErrEmptySearch
	}
	e.searchTerm = term
	e.prefs.SetSearchTerm(term)
	e.seq++
	seq := e.seq
	e.searching = true
	e.shipment = nil
	e.board = nil
	e.mu.Unlock()

	ctx, cancel := e.bind(ctx)
	defer cancel()
	out, err := e.client.SearchShipment(ctx, &shipcode.SearchShipmentInput{Term: term})

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	if seq != e.seq {
		return nil, ErrStaleResponse
	}
	e.searching = false
	if err != nil {
		if shipcode.IsNotFound(err) {
			e.setNotice(NoticeNotFound, "Data Not Found",
				fmt.Sprintf("No shipment or delivery found for \"%s\". Would you like to add this delivery/shipment number?", term))
		} else {
			e.setNotice(NoticeError, "Search Error", errorMessage(err, "Failed to search for shipment/delivery."))
		}
		return nil, err
	}
	e.logger.Debug("shipment found", "term", term, "matched_by", out.MatchedBy)
	e.load(out.Shipment)
	return e.copyShipment(), nil
}

func (e *Editor) load(s *shipcode.Shipment) {
	if s == nil {
		s = &shipcode.Shipment{}
	}
	e.shipment = s
	e.board = newBoard(s, e.logger)
	e.board.draw(e.toggles, e.theme, nil)
}

func (e *Editor) copyShipment() *shipcode.Shipment {
	if e.shipment == nil {
		return nil
	}
	s := *e.shipment
	s.Deliveries = append([]shipcode.Delivery(nil), e.shipment.Deliveries...)
	return &s
}

// ConfirmNotFound answers a pending not-found prompt: it switches to create
// mode with the searched number as delivery number. It reports false when
// no prompt is pending.
func (e *Editor) ConfirmNotFound() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notice == nil || e.notice.Kind != NoticeNotFound {
		return false
	}
	e.notice = nil
	e.switchMode(ModeCreate)
	e.form.DeliveryNumber = e.searchTerm
	return true
}

// DeclineNotFound answers a pending not-found prompt with no: the prompt
// is dismissed and the mode is left as it is. It reports false when no
// prompt is pending.
func (e *Editor) DeclineNotFound() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notice == nil || e.notice.Kind != NoticeNotFound {
		return false
	}
	e.notice = nil
	return true
}

func (e *Editor) SwitchMode(m Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.switchMode(m)
}

func (e *Editor) switchMode(m Mode) {
	if m == ModeCreate && e.mode != ModeCreate {
		e.form = NewForm()
	}
	e.mode = m
	e.validationErrors = nil
}

// EditForm applies fn to the create form. Changing the delivery type
// clears the validation errors.
func (e *Editor) EditForm(fn func(f *Form)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	before := e.form.DeliveryType
	fn(&e.form)
	if e.form.DeliveryType != before {
		e.validationErrors = nil
	}
}

// ResetForm restores the blank create form.
func (e *Editor) ResetForm() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form = NewForm()
	e.validationErrors = nil
}

// Create validates the form and submits it. Every validation failure is
// kept and returned as a shipcode.ValidationError. On success the form is
// reset, the editor returns to view mode and searches for the new delivery.
func (e *Editor) Create(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.saving {
		e.mu.Unlock()
		return ErrBusy
	}
	e.validationErrors = nil
	req := e.form.Request()
	if errs := shipcode.ValidateRequest(req); len(errs) > 0 {
		e.validationErrors = errs
		e.mu.Unlock()
		return shipcode.ValidationError{Messages: errs}
	}
	e.saving = true
	e.mu.Unlock()

	bctx, cancel := e.bind(ctx)
	_, err := e.client.CreateShipmentDelivery(bctx, &shipcode.CreateShipmentDeliveryInput{Request: req})
	cancel()

	e.mu.Lock()
	e.saving = false
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		e.setNotice(NoticeError, "Create Error", errorMessage(err, "Failed to create shipment delivery."))
		e.mu.Unlock()
		return err
	}
	e.setNotice(NoticeSuccess, "Success", "Shipment delivery created successfully!")
	e.form = NewForm()
	e.mode = ModeView
	e.mu.Unlock()

	if _, err := e.Search(ctx, req.DeliveryNumber); err != nil {
		e.logger.Debug("search after create did not load the delivery", "delivery", req.DeliveryNumber, "error", err)
	}
	return nil
}

// Update replaces the loaded shipment, including its delivery list, and
// reloads the board from the server's answer.
func (e *Editor) Update(ctx context.Context, payload shipcode.UpdateShipmentRequest) (*shipcode.Shipment, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if e.shipment == nil {
		e.mu.Unlock()
		return nil, ErrNoShipment
	}
	if e.saving {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	number := e.shipment.ShipmentNumber
	if strings.TrimSpace(payload.ShipmentNumber) == "" {
		payload.ShipmentNumber = number
	}
	e.saving = true
	seq := e.seq
	e.mu.Unlock()

	ctx, cancel := e.bind(ctx)
	defer cancel()
	out, err := e.client.UpdateShipment(ctx, &shipcode.UpdateShipmentInput{ShipmentNumber: number, Payload: payload})

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if e.closed {
		return nil, ErrClosed
	}
	if err != nil {
		e.setNotice(NoticeError, "Update Error", errorMessage(err, "Failed to update shipment."))
		return nil, err
	}
	e.setNotice(NoticeSuccess, "Success", "Shipment updated successfully!")
	// A search issued while saving owns the view.
	if seq != e.seq {
		return nil, ErrStaleResponse
	}
	e.seq++
	e.load(out.Shipment)
	return e.copyShipment(), nil
}

// Toggle flips the code kind of every field bound to id and re-renders
// only those fields.
func (e *Editor) Toggle(id string) (render.Kind, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return render.KindLinear, ErrClosed
	}
	if e.board == nil || !e.board.hasToggle(id) {
		return render.KindLinear, UnknownFieldError{ID: id}
	}
	e.toggles[id] = !e.toggles[id]
	e.board.draw(e.toggles, e.theme, func(s *slot) bool { return s.toggleID == id })
	return render.KindOf(e.toggles[id]), nil
}

// SetThemeColor stores the colour and re-renders every field.
func (e *Editor) SetThemeColor(hex string) (render.RGBColor, error) {
	color, err := render.ParseHexColor(hex)
	if err != nil {
		return render.RGBColor{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return render.RGBColor{}, ErrClosed
	}
	e.theme = color
	e.prefs.SetThemeColor(color.Hex())
	if e.board != nil {
		e.board.draw(e.toggles, e.theme, nil)
	}
	return color, nil
}

func (e *Editor) SaveAPIConfig(cfg shipcode.APIConfig) (shipcode.APIConfig, error) {
	if e.config == nil {
		return shipcode.APIConfig{}, errors.New("no API configuration is attached")
	}
	saved := e.config.Update(cfg)
	e.mu.Lock()
	e.setNotice(NoticeSuccess, "Configuration Saved", "API configuration has been saved successfully!")
	e.mu.Unlock()
	return saved, nil
}

func (e *Editor) ResetAPIConfig() (shipcode.APIConfig, error) {
	if e.config == nil {
		return shipcode.APIConfig{}, errors.New("no API configuration is attached")
	}
	cfg := e.config.Reset()
	e.mu.Lock()
	e.setNotice(NoticeSuccess, "Configuration Reset", "API configuration has been reset to defaults.")
	e.mu.Unlock()
	return cfg, nil
}

func (e *Editor) TestConnection(ctx context.Context) bool {
	ctx, cancel := e.bind(ctx)
	defer cancel()
	ok, err := e.client.TestConnection(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil || !ok {
		e.setNotice(NoticeError, "Connection Failed", errorMessage(err, "Unable to reach the shipment API."))
		return false
	}
	e.setNotice(NoticeSuccess, "Connection Successful", "The shipment API is reachable.")
	return true
}

func (e *Editor) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Editor) Form() Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form.clone()
}

func (e *Editor) ValidationErrors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.validationErrors...)
}

// Notice returns the pending notice, if any.
func (e *Editor) Notice() (Notice, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notice == nil {
		return Notice{}, false
	}
	return *e.notice, true
}

func (e *Editor) DismissNotice() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.notice = nil
}

// SearchTerm returns the last searched term, restored from preferences.
func (e *Editor) SearchTerm() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchTerm
}

func (e *Editor) Shipment() *shipcode.Shipment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copyShipment()
}

// Busy reports whether a search or save is in flight.
func (e *Editor) Busy() (searching, saving bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searching, e.saving
}

func (e *Editor) ThemeColor() render.RGBColor {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theme
}

// Slots returns every rendered field of the loaded shipment in display order.
func (e *Editor) Slots() []Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.board == nil {
		return nil
	}
	slots := make([]Slot, 0, len(e.board.slots))
	for _, s := range e.board.slots {
		slots = append(slots, s.snapshot(e.toggles))
	}
	return slots
}

func (e *Editor) Slot(path string) (Slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.board == nil {
		return Slot{}, false
	}
	s, ok := e.board.byPath[path]
	if !ok {
		return Slot{}, false
	}
	return s.snapshot(e.toggles), true
}

// Close cancels in-flight requests. Their results are dropped.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.cancel()
}
