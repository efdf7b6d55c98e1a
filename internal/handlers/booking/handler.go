package booking

import (
	"net/http"

	"hotel/infras/otel"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/domains/booking/service"
	"hotel/shared/constant"
	"hotel/shared/failure"
	"hotel/shared/validator"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var ErrInvalidView = failure.BadRequestFromString("view must be one of active, history or all")

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

// Router mounts the guest facing booking routes. Guests prove ownership with their
// name and phone number instead of a token.
func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Post("/lookup", handler.LookupBookings)
		routerGroup.Post("/cancel", handler.CancelBooking)
		routerGroup.Get("/{id}", handler.GetBookingByID)
		routerGroup.Put("/{id}", handler.ChangeBooking)
		routerGroup.Patch("/{id}/room", handler.ChangeRoom)
	})
}

// CreateBooking handles the creation of a new booking.
// @Summary Create a new booking
// @Description Book an available room for a stay. The room is held until the booking is cancelled.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Created booking"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking created successfully " + booking.ID)

	response.WithJSON(writer, http.StatusCreated, booking)
}

// LookupBookings finds the bookings of a guest.
// @Summary Look up a guest's bookings
// @Description Find bookings by guest name and email or phone number.
// @Tags Booking
// @Accept json
// @Produce json
// @Param view query string false "active, history or all" default(active)
// @Param request body dto.LookupBookingRequest true "Lookup Booking Request"
// @Success 200 {object} response.Data[[]dto.BookingResponse] "Matching bookings"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/lookup [post]
func (handler *Handler) LookupBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".LookupBookings")
	defer scope.End()

	view, ok := model.ParseView(request.URL.Query().Get(constant.RequestParamView))
	if !ok {
		scope.TraceError(ErrInvalidView)
		response.WithError(writer, ErrInvalidView)

		return
	}

	req := dto.LookupBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	bookings, err := handler.service.Lookup(ctx, req, view)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to look up bookings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking by its ID.
// @Summary Get a booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Param view query string false "active, history or all" default(active)
// @Success 200 {object} response.Data[dto.BookingResponse] "Booking details"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	view, ok := model.ParseView(request.URL.Query().Get(constant.RequestParamView))
	if !ok {
		scope.TraceError(ErrInvalidView)
		response.WithError(writer, ErrInvalidView)

		return
	}

	booking, err := handler.service.Get(ctx, chi.URLParam(request, constant.RequestParamID), view)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get booking by ID")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// ChangeBooking moves a booking to another room and stay.
// @Summary Change a booking's room and dates
// @Description Change the room, branch and dates of a booking. Not allowed within the change cutoff before check-in.
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.ChangeBookingRequest true "Change Booking Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Changed booking"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [put]
func (handler *Handler) ChangeBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ChangeBooking")
	defer scope.End()

	req := dto.ChangeBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.ChangeRoomAndDates(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to change booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking changed successfully " + booking.ID)

	response.WithJSON(writer, http.StatusOK, booking)
}

// ChangeRoom moves a booking to another room of the same branch.
// @Summary Change a booking's room
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.ChangeRoomRequest true "Change Room Request"
// @Success 200 {object} response.Data[dto.BookingResponse] "Changed booking"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/room [patch]
func (handler *Handler) ChangeRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ChangeRoom")
	defer scope.End()

	req := dto.ChangeRoomRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.ChangeRoomOnly(ctx, chi.URLParam(request, constant.RequestParamID), req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to change booking room")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking room changed successfully " + booking.ID)

	response.WithJSON(writer, http.StatusOK, booking)
}

// CancelBooking cancels the guest's active booking and frees its room.
// @Summary Cancel a booking
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CancelBookingRequest true "Cancel Booking Request"
// @Success 200 {object} response.Message "Booking cancelled successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/cancel [post]
func (handler *Handler) CancelBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	req := dto.CancelBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.CancelForGuest(ctx, req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel booking")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Booking cancelled successfully")
}
