package branch

import (
	"net/http"

	"hotel/infras/otel"
	"hotel/internal/domains/branch/model/dto"
	"hotel/internal/domains/branch/service"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/validator"
	"hotel/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Branch
	otel    otel.Otel
}

func New(service service.Branch, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

// Router mounts the public reads on router and the mutations on staff, which
// carries the authentication middlewares.
func (handler *Handler) Router(router chi.Router, staff chi.Router) {
	router.Get("/branches", handler.GetBranches)
	router.Get("/branches/{slug}", handler.GetBranchBySlug)

	staff.Post("/branches", handler.CreateBranch)
	staff.Patch("/branches/{slug}", handler.UpdateBranch)
	staff.Delete("/branches/{slug}", handler.DeleteBranch)
}

// CreateBranch handles the creation of a new branch.
// @Summary Create a new branch
// @Description Create a hotel branch. The slug is derived from the name.
// @Tags Branch
// @Accept json
// @Produce json
// @Param request body dto.CreateBranchRequest true "Create Branch Request"
// @Success 201 {object} response.Data[dto.BranchResponse] "Created branch"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/branches [post]
// @Security BearerAuth
func (handler *Handler) CreateBranch(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBranch")
	defer scope.End()

	req := dto.CreateBranchRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	branch, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create branch")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Branch created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, branch)
}

// GetBranches lists branches.
// @Summary Get all branches
// @Tags Branch
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.GetBranchesResponse] "List of branches"
// @Failure 500 {object} response.Error
// @Router /v1/branches [get]
func (handler *Handler) GetBranches(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBranches")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	branches, err := handler.service.GetAll(ctx, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branches")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, branches)
}

// GetBranchBySlug retrieves a branch by its slug.
// @Summary Get a branch by slug
// @Tags Branch
// @Produce json
// @Param slug path string true "Branch slug"
// @Success 200 {object} response.Data[dto.BranchResponse] "Branch details"
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/branches/{slug} [get]
func (handler *Handler) GetBranchBySlug(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBranchBySlug")
	defer scope.End()

	branch, err := handler.service.GetBySlug(ctx, chi.URLParam(request, constant.RequestParamSlug))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get branch by slug")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, branch)
}

// UpdateBranch updates the branch with the given slug.
// @Summary Update a branch
// @Tags Branch
// @Accept json
// @Produce json
// @Param slug path string true "Branch slug"
// @Param request body dto.UpdateBranchRequest true "Update Branch Request"
// @Success 200 {object} response.Message "Branch updated successfully"
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/branches/{slug} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateBranch(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateBranch")
	defer scope.End()

	req := dto.UpdateBranchRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.Update(ctx, req, chi.URLParam(request, constant.RequestParamSlug)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update branch")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Branch updated successfully by user " + user)

	response.WithMessage(writer, http.StatusOK, "Branch updated successfully")
}

// DeleteBranch removes a branch together with its rooms.
// @Summary Delete a branch
// @Tags Branch
// @Produce json
// @Param slug path string true "Branch slug"
// @Success 200 {object} response.Message "Branch deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/branches/{slug} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteBranch(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteBranch")
	defer scope.End()

	if err := handler.service.Delete(ctx, chi.URLParam(request, constant.RequestParamSlug)); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete branch")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Branch deleted successfully by user " + user)

	response.WithMessage(writer, http.StatusOK, "Branch deleted successfully")
}
