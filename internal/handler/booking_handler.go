package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prohmpiriya/ticket-storefront/internal/confirmation"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
	"github.com/prohmpiriya/ticket-storefront/internal/dto"
	"github.com/prohmpiriya/ticket-storefront/internal/session"
	"github.com/prohmpiriya/ticket-storefront/internal/wizard"
	"github.com/prohmpiriya/ticket-storefront/pkg/response"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

// BookingHandler exposes the session's booking wizard over HTTP
type BookingHandler struct {
	wizards   *wizard.Registry
	presenter *confirmation.Presenter
	loginPath string
}

// BookingHandlerConfig contains configuration for booking handler
type BookingHandlerConfig struct {
	// Where the buyer is sent when the reservation needs a fresh login
	AuthLoginPath string
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(wizards *wizard.Registry, presenter *confirmation.Presenter, cfg *BookingHandlerConfig) *BookingHandler {
	loginPath := "/login"
	if cfg != nil && cfg.AuthLoginPath != "" {
		loginPath = cfg.AuthLoginPath
	}
	return &BookingHandler{wizards: wizards, presenter: presenter, loginPath: loginPath}
}

// Start handles POST /events/:id/booking
func (h *BookingHandler) Start(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.start")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	eventID := c.Param("id")
	span.SetAttributes(attribute.String("event_id", eventID))

	state, err := ctl.Start(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	response.Success(c, h.render(ctl, state))
}

// Get handles GET /booking. A session that never started a booking gets the
// initial step without allocating a wizard.
func (h *BookingHandler) Get(c *gin.Context) {
	sid, ok := session.IDFromContext(c.Request.Context())
	if !ok {
		handleError(c, session.ErrNoSession)
		return
	}
	ctl, found := h.wizards.Lookup(sid)
	if !found {
		response.Success(c, dto.WizardResponse{Step: string(wizard.StepSelectingTicket)})
		return
	}
	response.Success(c, h.render(ctl, ctl.State()))
}

// SelectTicket handles POST /booking/ticket
func (h *BookingHandler) SelectTicket(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	var req dto.SelectTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := ctl.SelectTicket(req.TicketTypeID)
	h.reply(c, ctl, state, err)
}

// SetQuantity handles PUT /booking/quantity
func (h *BookingHandler) SetQuantity(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	var req dto.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := ctl.SetQuantity(*req.Quantity)
	h.reply(c, ctl, state, err)
}

// SetPaymentMethod handles PUT /booking/payment-method
func (h *BookingHandler) SetPaymentMethod(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	var req dto.SetPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	state, err := ctl.SetPaymentMethod(req.PaymentMethod)
	h.reply(c, ctl, state, err)
}

// Submit handles POST /booking/submit. It answers 202 when a submission is
// already in flight for the session.
func (h *BookingHandler) Submit(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.submit")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	state, err := ctl.Submit(ctx)
	h.settle(c, span, ctl, state, err)
}

// Retry handles POST /booking/retry
func (h *BookingHandler) Retry(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.retry")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	state, err := ctl.Retry(ctx)
	h.settle(c, span, ctl, state, err)
}

// Edit handles POST /booking/edit
func (h *BookingHandler) Edit(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	state, err := ctl.Edit()
	h.reply(c, ctl, state, err)
}

// Back handles POST /booking/back
func (h *BookingHandler) Back(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	state, err := ctl.Back()
	h.reply(c, ctl, state, err)
}

// Reset handles POST /booking/reset
func (h *BookingHandler) Reset(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, h.render(ctl, ctl.Reset()))
}

// Summary handles GET /booking/summary
func (h *BookingHandler) Summary(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	summary, ok := ctl.Summary()
	if !ok {
		response.NotFound(c, "no ticket selected")
		return
	}
	response.Success(c, toSummaryResponse(summary))
}

// Confirmation handles GET /booking/confirmation
func (h *BookingHandler) Confirmation(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	view, err := h.presenter.FromWizard(ctl)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

// Dismiss handles POST /booking/confirmation/dismiss
func (h *BookingHandler) Dismiss(c *gin.Context) {
	ctl, ok := h.controller(c)
	if !ok {
		return
	}
	state, err := h.presenter.ReturnToStart(ctl)
	h.reply(c, ctl, state, err)
}

// DownloadTicket handles GET /booking/confirmation/tickets/:number/download
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.booking.download")
	defer span.End()

	ctl, ok := h.controller(c)
	if !ok {
		return
	}

	number := c.Param("number")
	span.SetAttributes(attribute.String("ticket_number", number))

	doc, err := h.presenter.Download(ctx, ctl, number)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

func (h *BookingHandler) controller(c *gin.Context) (*wizard.Controller, bool) {
	sid, ok := session.IDFromContext(c.Request.Context())
	if !ok {
		handleError(c, session.ErrNoSession)
		return nil, false
	}
	return h.wizards.Get(sid), true
}

// reply answers a wizard action. Guard rejections carry the unchanged state
// so the view can show the inline error next to the prior values.
func (h *BookingHandler) reply(c *gin.Context, ctl *wizard.Controller, state wizard.State, err error) {
	if err == nil {
		response.Success(c, h.render(ctl, state))
		return
	}
	if state.InlineError != nil {
		_ = c.Error(err)
		response.Rejected(c, http.StatusUnprocessableEntity, inlineCode(err), err.Error(), h.render(ctl, state))
		return
	}
	handleError(c, err)
}

func (h *BookingHandler) settle(c *gin.Context, span trace.Span, ctl *wizard.Controller, state wizard.State, err error) {
	if err != nil {
		h.reply(c, ctl, state, err)
		return
	}
	span.SetAttributes(attribute.String("wizard.step", string(state.Step)))
	if state.Step == wizard.StepSubmitting {
		c.JSON(http.StatusAccepted, response.Response{Success: true, Data: h.render(ctl, state)})
		return
	}
	response.Success(c, h.render(ctl, state))
}

func (h *BookingHandler) render(ctl *wizard.Controller, state wizard.State) dto.WizardResponse {
	resp := dto.WizardResponse{Step: string(state.Step)}
	if state.Event != nil {
		resp.EventID = state.Event.ID
		resp.EventName = state.Event.Name
	}
	if state.InlineError != nil {
		resp.InlineError = state.InlineError.Error()
	}

	if sel := state.Selection; sel != nil {
		resp.Selection = &dto.SelectionResponse{
			EventID:        sel.EventID,
			TicketTypeID:   sel.TicketTypeID(),
			TicketTypeName: sel.TicketType.Name,
			Quantity:       sel.Quantity,
			MaxQuantity:    sel.TicketType.MaxQuantity(),
			PaymentMethod:  string(sel.PaymentMethod),
		}
		if summary, ok := ctl.SummaryOf(state); ok {
			s := toSummaryResponse(summary)
			resp.Summary = &s
		}
	}

	if state.Result != nil {
		var tt *domain.TicketType
		if state.Event != nil && len(state.Result.Tickets) > 0 {
			tt, _ = state.Event.FindTicketType(state.Result.Tickets[0].TicketTypeID)
		}
		view := h.presenter.Present(state.Result, tt, state.Event)
		resp.Confirmation = &view
	}

	if state.Err != nil {
		resp.Error = toErrorInfo(state.Err)
	}
	if state.RedirectToAuth {
		resp.RedirectToAuth = true
		resp.RedirectURL = h.loginPath
	}
	return resp
}

func toSummaryResponse(s wizard.Summary) dto.SummaryResponse {
	return dto.SummaryResponse{
		EventName:      s.EventName,
		TicketTypeName: s.TicketTypeName,
		Quantity:       s.Quantity,
		UnitPrice:      s.UnitPrice,
		Total:          s.Total,
		PaymentMethod:  string(s.PaymentMethod),
	}
}

func toErrorInfo(err error) *dto.ErrorInfo {
	info := &dto.ErrorInfo{
		Kind:      string(domain.KindOf(err)),
		Message:   domain.UserMessage(err),
		Retryable: domain.IsRetryable(err),
	}
	var be *domain.BookingError
	if errors.As(err, &be) {
		info.Status = be.Status
	}
	return info
}

func inlineCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "INVALID_QUANTITY"
	case errors.Is(err, domain.ErrTicketTypeNotFound):
		return "TICKET_TYPE_NOT_FOUND"
	case errors.Is(err, domain.ErrTicketNotSelectable):
		return "TICKET_NOT_SELECTABLE"
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return "INVALID_PAYMENT_METHOD"
	case errors.Is(err, domain.ErrPaymentMethodRequired):
		return "PAYMENT_METHOD_REQUIRED"
	}
	return "REJECTED"
}
