package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Branch=MockBranchService

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/infras/s3"
	"hotel/internal/domains/branch/model"
	"hotel/internal/domains/branch/model/dto"
	"hotel/internal/domains/branch/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/upload"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetBranch    = "branch:get"
	cacheGetAllBranch = "branch:gets"
)

var sortableFields = []string{model.FieldName, model.FieldRating, constant.FieldCreatedAt}

var ErrBranchNotFound = &failure.Failure{Code: http.StatusNotFound, Message: "branch not found"}

type Branch interface {
	Create(ctx context.Context, req dto.CreateBranchRequest) (dto.BranchResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams) (dto.GetBranchesResponse, error)
	GetBySlug(ctx context.Context, slug string) (dto.BranchResponse, error)
	Update(ctx context.Context, req dto.UpdateBranchRequest, slug string) error
	Delete(ctx context.Context, slug string) error
}

type serviceImpl struct {
	repo  repository.Branch
	cfg   *config.Config
	cache cache.RedisCache
	store s3.S3
	otel  otel.Otel
}

func New(repo repository.Branch, cfg *config.Config, cache cache.RedisCache, store s3.S3, otel otel.Otel) Branch {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		store: store,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBranchRequest) (res dto.BranchResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Branch.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	branch := req.ToModel(actor)

	if branch.Slug == constant.Empty {
		return res, failure.BadRequestFromString("branch name must contain letters or digits")
	}

	if req.Image != constant.Empty {
		branch.ImageURL, err = upload.Image(ctx, s.store, model.EntityName, req.Image, s.cfg.Upload.MaxImageBytes)
		if err != nil {
			return res, err
		}
	}

	if err = s.repo.Insert(ctx, branch); err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("failed to create branch")
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, branch.ImageURL)

		return res, err
	}

	go shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, cacheGetAllBranch)

	res.FromModel(branch)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams) (res dto.GetBranchesResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Branch.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !slices.Contains(sortableFields, req.SortBy) {
		req.SortBy, req.SortDir = model.FieldName, gDto.SortDirAsc
	}

	if req.SortDir == constant.Empty {
		req.SortDir = gDto.SortDirAsc
	}

	filter := gDto.FilterGroup{}
	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBranch, req, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for branches")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return res, fmt.Errorf("failed to count branches: %w", err)
	}

	branches, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		return res, fmt.Errorf("failed to get branches: %w", err)
	}

	res.FromModels(branches, total, req.Limit)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save branches to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetBySlug(ctx context.Context, slug string) (res dto.BranchResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Branch.GetBySlug")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetBranch, slug)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		return res, nil
	}

	branch, err := s.repo.Get(ctx, shared.FilterByField(model.FieldSlug, slug, model.TableName))
	if err != nil {
		return res, fmt.Errorf("failed to get branch: %w", err)
	}

	if branch.ID == constant.Empty {
		return res, ErrBranchNotFound
	}

	res.FromModel(branch)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save branch to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateBranchRequest, slug string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Branch.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByField(model.FieldSlug, slug, model.TableName)

	current, err := s.repo.Get(ctx, filter, model.FieldID, model.FieldImageURL)
	if err != nil {
		return fmt.Errorf("failed to get branch: %w", err)
	}

	if current.ID == constant.Empty {
		return ErrBranchNotFound
	}

	fields := req.ToFields(actor)

	var imageURL string

	if req.Image != constant.Empty {
		if imageURL, err = upload.Image(ctx, s.store, model.EntityName, req.Image, s.cfg.Upload.MaxImageBytes); err != nil {
			return err
		}

		fields[model.FieldImageURL] = imageURL
	}

	if err = s.repo.Update(ctx, fields, shared.FilterByID(current.ID, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to update branch")
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, imageURL)

		return err
	}

	if imageURL != constant.Empty {
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, current.ImageURL)
	}

	go s.invalidate(context.WithoutCancel(ctx), slug)

	return nil
}

// Delete removes the branch and its image. Rooms go with it through the foreign key
// cascade.
func (s *serviceImpl) Delete(ctx context.Context, slug string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Branch.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := shared.FilterByField(model.FieldSlug, slug, model.TableName)

	current, err := s.repo.Get(ctx, filter, model.FieldID, model.FieldImageURL)
	if err != nil {
		return fmt.Errorf("failed to get branch: %w", err)
	}

	if current.ID == constant.Empty {
		return ErrBranchNotFound
	}

	if err = s.repo.Delete(ctx, shared.FilterByID(current.ID, model.FieldID, model.TableName)); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}

	upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, current.ImageURL)

	go s.invalidate(context.WithoutCancel(ctx), slug)

	return nil
}

func (s *serviceImpl) invalidate(ctx context.Context, slug string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetBranch, slug)); err != nil {
		log.Error().Err(err).Msg("failed to delete branch cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBranch)
}
