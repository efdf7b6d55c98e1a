package room

import (
	"context"
	"net/http"

	"hotel/infras/otel"
	branchService "hotel/internal/domains/branch/service"
	"hotel/internal/domains/room/model"
	"hotel/internal/domains/room/model/dto"
	"hotel/internal/domains/room/service"
	"hotel/shared"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/validator"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	queryParamPriceMin = "price_min"
	queryParamPriceMax = "price_max"
)

type Handler struct {
	service service.Room
	branch  branchService.Branch
	otel    otel.Otel
}

func New(service service.Room, branch branchService.Branch, otel otel.Otel) Handler {
	return Handler{
		service: service,
		branch:  branch,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router, staff chi.Router) {
	router.Get("/branches/{slug}/rooms", handler.GetRooms)
	router.Get("/rooms/{id}", handler.GetRoomByID)

	staff.Post("/rooms", handler.CreateRoom)
	staff.Patch("/rooms/{id}", handler.UpdateRoom)
	staff.Delete("/rooms/{id}", handler.DeleteRoom)
}

// CreateRoom handles the creation of a new room.
// @Summary Create a new room
// @Description Create a room in a branch. New rooms start out available.
// @Tags Room
// @Accept json
// @Produce json
// @Param request body dto.CreateRoomRequest true "Create Room Request"
// @Success 201 {object} response.Data[dto.RoomResponse] "Created room"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	req := dto.CreateRoomRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.authorize(ctx, req.BranchID); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	room, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, room)
}

// GetRooms lists the rooms of a branch.
// @Summary Get the rooms of a branch
// @Description List a branch's rooms, optionally narrowed by type, availability and price.
// @Tags Room
// @Produce json
// @Param slug path string true "Branch slug"
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param room_type query string false "Filter by room type"
// @Param is_available query boolean false "Filter by availability"
// @Param price_min query string false "Minimum price per night"
// @Param price_max query string false "Maximum price per night"
// @Success 200 {object} response.Data[dto.GetRoomsResponse] "List of rooms"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/branches/{slug}/rooms [get]
func (handler *Handler) GetRooms(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	filter, err := roomFilter(request)
	if err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	branch, err := handler.branch.GetBySlug(ctx, chi.URLParam(request, constant.RequestParamSlug))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branch for rooms")

		response.WithError(writer, err)

		return
	}

	rooms, err := handler.service.ListByBranch(ctx, branch.ID, queryParams, filter)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, rooms)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[dto.RoomResponse] "Room details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
func (handler *Handler) GetRoomByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	room, err := handler.service.Get(ctx, chi.URLParam(request, constant.RequestParamID))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by ID")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, room)
}

// UpdateRoom updates an existing room by its ID.
// @Summary Update a room by ID
// @Description Update a room's number, type or price. Availability only follows bookings.
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body dto.UpdateRoomRequest true "Update Room Request"
// @Success 200 {object} response.Message "Room updated successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)
	req := dto.UpdateRoomRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.authorizeRoom(ctx, id); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithMessage(writer, http.StatusOK, "Room updated successfully")
}

// DeleteRoom deletes a room by its ID.
// @Summary Delete a room by ID
// @Description Delete a room. A room held by an active booking cannot be deleted.
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	if err := handler.authorizeRoom(ctx, id); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(writer, http.StatusOK, "Room deleted successfully")
}

// authorize lets staff bound to a branch touch only that branch's rooms.
func (handler *Handler) authorize(ctx context.Context, branchID string) error {
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
	slug, _ := ctx.Value(constant.ContextKeyBranch).(string)

	if role == constant.RoleAdmin || slug == constant.Empty {
		return nil
	}

	branch, err := handler.branch.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if branch.ID != branchID {
		return failure.ForbiddenError
	}

	return nil
}

func (handler *Handler) authorizeRoom(ctx context.Context, id string) error {
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
	slug, _ := ctx.Value(constant.ContextKeyBranch).(string)

	if role == constant.RoleAdmin || slug == constant.Empty {
		return nil
	}

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		return err
	}

	return handler.authorize(ctx, room.BranchID)
}

func roomFilter(request *http.Request) (dto.RoomFilter, error) {
	query := request.URL.Query()

	filter := dto.RoomFilter{
		RoomType:    query.Get(model.FieldRoomType),
		IsAvailable: shared.ParseOptionalBool(query.Get(model.FieldIsAvailable)),
	}

	if err := validator.ValidateVar("room_type", filter.RoomType, "omitempty,oneof=single double deluxe 'double deluxe' suite"); err != nil {
		return filter, err
	}

	for param, target := range map[string]**decimal.Decimal{
		queryParamPriceMin: &filter.PriceMin,
		queryParamPriceMax: &filter.PriceMax,
	} {
		value := query.Get(param)
		if value == constant.Empty {
			continue
		}

		price, err := decimal.NewFromString(value)
		if err != nil {
			return filter, failure.BadRequestFromString(param + " must be a decimal number")
		}

		*target = &price
	}

	return filter, nil
}
