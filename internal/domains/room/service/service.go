package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Room=MockRoomService

import (
	"context"
	"fmt"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/infras/s3"
	"hotel/internal/domains/room/model"
	"hotel/internal/domains/room/model/dto"
	"hotel/internal/domains/room/repository"
	"hotel/shared"
	"hotel/shared/cache"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/shared/failure"
	"hotel/shared/upload"

	"github.com/rs/zerolog/log"
)

var ErrRoomOccupied = failure.Conflict("room is held by an active booking")

var sortableFields = map[string]string{
	model.FieldRoomNumber:    model.TableName + "." + model.FieldRoomNumber,
	model.FieldRoomType:      model.TableName + "." + model.FieldRoomType,
	model.FieldPricePerNight: model.TableName + "." + model.FieldPricePerNight,
	constant.FieldCreatedAt:  model.TableName + "." + constant.FieldCreatedAt,
}

type Room interface {
	Create(ctx context.Context, req dto.CreateRoomRequest) (dto.RoomResponse, error)
	ListByBranch(ctx context.Context, branchID string, req gDto.QueryParams, filter dto.RoomFilter) (dto.GetRoomsResponse, error)
	Get(ctx context.Context, id string) (dto.RoomResponse, error)
	Update(ctx context.Context, req dto.UpdateRoomRequest, id string) error
	Delete(ctx context.Context, id string) error
}

type serviceImpl struct {
	repo  repository.Room
	cfg   *config.Config
	cache cache.RedisCache
	store s3.S3
	otel  otel.Otel
}

func New(repo repository.Room, cfg *config.Config, cache cache.RedisCache, store s3.S3, otel otel.Otel) Room {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		store: store,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRoomRequest) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = req.CheckPrice(); err != nil {
		return res, err
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	room := req.ToModel(actor)

	if req.Image != constant.Empty {
		room.ImageURL, err = upload.Image(ctx, s.store, model.EntityName, req.Image, s.cfg.Upload.MaxImageBytes)
		if err != nil {
			return res, err
		}
	}

	if err = s.repo.Insert(ctx, room); err != nil {
		log.Error().Err(err).Str("branchID", req.BranchID).Int("roomNumber", req.RoomNumber).Msg("failed to create room")
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, room.ImageURL)

		return res, err
	}

	go shared.InvalidateCaches(context.WithoutCancel(ctx), s.cache, model.CacheGetAllRoom)

	res.FromModel(room)

	return res, nil
}

func (s *serviceImpl) ListByBranch(ctx context.Context, branchID string, req gDto.QueryParams, roomFilter dto.RoomFilter) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.ListByBranch")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if column, ok := sortableFields[req.SortBy]; ok {
		req.SortBy = column
	} else {
		req.SortBy, req.SortDir = sortableFields[model.FieldRoomNumber], gDto.SortDirAsc
	}

	if req.SortDir == constant.Empty {
		req.SortDir = gDto.SortDirAsc
	}

	filter := roomFilter.ToFilterGroup(branchID)
	cacheKey := shared.BuildCacheKeyWithQuery(model.CacheGetAllRoom, req, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	rooms, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(rooms, total, req.Limit)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(model.CacheGetRoom, id)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		return res, nil
	}

	room, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return res, model.ErrRoomNotFound
	}

	res.FromModel(room)

	go func() {
		if err := s.cache.Save(context.WithoutCancel(ctx), cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, req dto.UpdateRoomRequest, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = req.CheckPrice(); err != nil {
		return err
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	current, err := s.repo.Get(ctx, filter, model.FieldID, model.FieldImageURL)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if current.ID == constant.Empty {
		return model.ErrRoomNotFound
	}

	fields := shared.TransformFields(req, actor)

	var imageURL string

	if req.Image != constant.Empty {
		if imageURL, err = upload.Image(ctx, s.store, model.EntityName, req.Image, s.cfg.Upload.MaxImageBytes); err != nil {
			return err
		}

		fields[model.FieldImageURL] = imageURL
	}

	if err = s.repo.Update(ctx, fields, filter); err != nil {
		log.Error().Err(err).Str("roomID", id).Msg("failed to update room")
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, imageURL)

		return err
	}

	if imageURL != constant.Empty {
		upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, current.ImageURL)
	}

	go s.invalidate(context.WithoutCancel(ctx), id)

	return nil
}

// Delete refuses to remove a room that an active booking still holds.
func (s *serviceImpl) Delete(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Room.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	current, err := s.repo.Get(ctx, filter, model.FieldID, model.FieldIsAvailable, model.FieldImageURL)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	if current.ID == constant.Empty {
		return model.ErrRoomNotFound
	}

	if !current.IsAvailable {
		return ErrRoomOccupied
	}

	// The availability predicate keeps a booking that slipped in since the read from
	// losing its room through the cascade.
	guarded := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldIsAvailable, Value: true, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}

	deleted, err := s.repo.DeleteCount(ctx, guarded)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	if deleted == 0 {
		return ErrRoomOccupied
	}

	upload.Discard(context.WithoutCancel(ctx), s.store, model.EntityName, current.ImageURL)

	go s.invalidate(context.WithoutCancel(ctx), id)

	return nil
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(model.CacheGetRoom, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete room cache")
	}

	shared.InvalidateCaches(ctx, s.cache, model.CacheGetAllRoom)
}
