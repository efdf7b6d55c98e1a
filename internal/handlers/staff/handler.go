package staff

import (
	"context"
	"net/http"

	"hotel/infras/otel"
	bookingModel "hotel/internal/domains/booking/model"
	bookingDto "hotel/internal/domains/booking/model/dto"
	bookingService "hotel/internal/domains/booking/service"
	branchService "hotel/internal/domains/branch/service"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var ErrInvalidView = failure.BadRequestFromString("view must be one of active, history or all")

// Handler serves the booking desk of a branch. Every route is scoped by the branch
// slug, and a booking of another branch reads as not found.
type Handler struct {
	booking bookingService.Booking
	branch  branchService.Branch
	otel    otel.Otel
}

func New(booking bookingService.Booking, branch branchService.Branch, otel otel.Otel) Handler {
	return Handler{
		booking: booking,
		branch:  branch,
		otel:    otel,
	}
}

func (handler *Handler) Router(staff chi.Router) {
	staff.Get("/staff/branches/{slug}/bookings", handler.GetBookings)
	staff.Get("/staff/branches/{slug}/bookings/{id}", handler.GetBookingByID)
	staff.Delete("/staff/branches/{slug}/bookings/{id}", handler.CancelBooking)
}

// GetBookings lists the bookings of a branch.
// @Summary Get the bookings of a branch
// @Description List a branch's active bookings, or its expired and cancelled ones with view=history.
// @Tags Staff
// @Produce json
// @Param slug path string true "Branch slug"
// @Param view query string false "active, history or all" default(active)
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[bookingDto.GetBookingsResponse] "List of bookings"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/staff/branches/{slug}/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Staff.GetBookings")
	defer scope.End()

	view, ok := bookingModel.ParseView(request.URL.Query().Get(constant.RequestParamView))
	if !ok {
		scope.TraceError(ErrInvalidView)
		response.WithError(writer, ErrInvalidView)

		return
	}

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	branch, err := handler.branch.GetBySlug(ctx, chi.URLParam(request, constant.RequestParamSlug))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branch for bookings")

		response.WithError(writer, err)

		return
	}

	bookings, err := handler.booking.ListByBranch(ctx, branch.ID, view, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a booking of the branch.
// @Summary Get a booking of a branch
// @Tags Staff
// @Produce json
// @Param slug path string true "Branch slug"
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[bookingDto.BookingResponse] "Booking details"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/staff/branches/{slug}/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Staff.GetBookingByID")
	defer scope.End()

	booking, err := handler.branchBooking(ctx, request)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branch booking")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// CancelBooking cancels a booking of the branch and frees its room.
// @Summary Cancel a booking of a branch
// @Tags Staff
// @Produce json
// @Param slug path string true "Branch slug"
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Message "Booking cancelled successfully"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/staff/branches/{slug}/bookings/{id} [delete]
// @Security BearerAuth
func (handler *Handler) CancelBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Staff.CancelBooking")
	defer scope.End()

	branch, err := handler.branch.GetBySlug(ctx, chi.URLParam(request, constant.RequestParamSlug))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branch")

		response.WithError(writer, err)

		return
	}

	if err := handler.booking.Cancel(ctx, chi.URLParam(request, constant.RequestParamID), branch.ID); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to cancel booking")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Booking cancelled successfully by user " + user)

	response.WithMessage(writer, http.StatusOK, "Booking cancelled successfully")
}

// branchBooking loads the booking in the URL and checks it belongs to the branch in the URL.
func (handler *Handler) branchBooking(ctx context.Context, request *http.Request) (bookingDto.BookingResponse, error) {
	branch, err := handler.branch.GetBySlug(ctx, chi.URLParam(request, constant.RequestParamSlug))
	if err != nil {
		return bookingDto.BookingResponse{}, err
	}

	booking, err := handler.booking.Get(ctx, chi.URLParam(request, constant.RequestParamID), bookingModel.ViewAll)
	if err != nil {
		return bookingDto.BookingResponse{}, err
	}

	if booking.Branch.ID != branch.ID {
		return bookingDto.BookingResponse{}, bookingModel.ErrBookingNotFound
	}

	return booking, nil
}
