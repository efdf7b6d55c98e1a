package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotel/config"
	"hotel/infras/jwt"
	otelMocks "hotel/infras/otel/mocks"
	bookingMocks "hotel/internal/domains/booking/mocks"
	bookingModel "hotel/internal/domains/booking/model"
	bookingDto "hotel/internal/domains/booking/model/dto"
	branchMocks "hotel/internal/domains/branch/mocks"
	branchDto "hotel/internal/domains/branch/model/dto"
	roomMocks "hotel/internal/domains/room/mocks"
	roomDto "hotel/internal/domains/room/model/dto"
	"hotel/internal/handlers/booking"
	"hotel/internal/handlers/branch"
	"hotel/internal/handlers/room"
	"hotel/internal/handlers/staff"
	"hotel/permissions"
	"hotel/shared/constant"
	gDto "hotel/shared/dto"
	"hotel/transport/http/middleware"
	"hotel/transport/http/router"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const apiKey = "internal-key"

var (
	downtown = branchDto.BranchResponse{ID: "branch-downtown", Slug: "downtown"}
	uptown   = branchDto.BranchResponse{ID: "branch-uptown", Slug: "uptown"}
)

type fixture struct {
	branch  *branchMocks.MockBranchService
	room    *roomMocks.MockRoomService
	booking *bookingMocks.MockBookingService
	tokens  jwt.JWT
	mux     *chi.Mux
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.AccessSecret = "test-secret"
	cfg.App.APIKey = apiKey

	ctrl := gomock.NewController(t)
	otl := otelMocks.NewOtel()

	f := fixture{
		branch:  branchMocks.NewMockBranchService(ctrl),
		room:    roomMocks.NewMockRoomService(ctrl),
		booking: bookingMocks.NewMockBookingService(ctrl),
		tokens:  jwt.New(cfg),
		mux:     chi.NewRouter(),
	}

	r := router.New(router.DomainHandlers{
		Branch:  branch.New(f.branch, otl),
		Room:    room.New(f.room, f.branch, otl),
		Booking: booking.New(f.booking, otl),
		Staff:   staff.New(f.booking, f.branch, otl),
	}, middleware.NewAuthRoleMiddleware(f.tokens, otl, permissions.Get(), cfg))

	r.SetupRoutes(f.mux)

	return f
}

func (f fixture) token(t *testing.T, role, branch string, ttl time.Duration) string {
	t.Helper()

	token, err := f.tokens.Issue("staff-1", role, branch, ttl)
	require.NoError(t, err)

	return "Bearer " + token
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		header     func(t *testing.T, f fixture) http.Header
		setupMock  func(f fixture)
		wantStatus int
	}{
		{
			name:   "branches are public",
			method: http.MethodGet,
			path:   "/v1/branches",
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetAll(gomock.Any(), gomock.Any()).Return(branchDto.GetBranchesResponse{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "creating a branch needs a token",
			method:     http.MethodPost,
			path:       "/v1/branches",
			body:       `{}`,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "staff cannot create branches",
			method: http.MethodPost,
			path:   "/v1/branches",
			body:   `{}`,
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "expired token",
			method: http.MethodDelete,
			path:   "/v1/branches/downtown",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleAdmin, "", -time.Hour)}}
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "admin deletes a branch",
			method: http.MethodDelete,
			path:   "/v1/branches/downtown",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleAdmin, "", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().Delete(gomock.Any(), "downtown").Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "internal caller with api key skips the token",
			method: http.MethodDelete,
			path:   "/v1/branches/downtown",
			header: func(_ *testing.T, _ fixture) http.Header {
				return http.Header{constant.RequestHeaderAPIKey: {apiKey}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().Delete(gomock.Any(), "downtown").Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "wrong api key",
			method: http.MethodDelete,
			path:   "/v1/branches/downtown",
			header: func(_ *testing.T, _ fixture) http.Header {
				return http.Header{constant.RequestHeaderAPIKey: {"guess"}}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "staff lists bookings of their branch",
			method: http.MethodGet,
			path:   "/v1/staff/branches/downtown/bookings?view=history",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetBySlug(gomock.Any(), "downtown").Return(downtown, nil)
				f.booking.EXPECT().ListByBranch(gomock.Any(), downtown.ID, bookingModel.ViewHistory, gomock.Any()).
					Return(bookingDto.GetBookingsResponse{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "staff cannot list bookings of another branch",
			method: http.MethodGet,
			path:   "/v1/staff/branches/uptown/bookings",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "admin lists bookings of any branch",
			method: http.MethodGet,
			path:   "/v1/staff/branches/uptown/bookings",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleAdmin, "", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetBySlug(gomock.Any(), "uptown").Return(uptown, nil)
				f.booking.EXPECT().ListByBranch(gomock.Any(), uptown.ID, bookingModel.ViewActive, gomock.Any()).
					Return(bookingDto.GetBookingsResponse{}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "unknown view",
			method: http.MethodGet,
			path:   "/v1/staff/branches/downtown/bookings?view=archived",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "booking of another branch reads as not found",
			method: http.MethodDelete,
			path:   "/v1/staff/branches/downtown/bookings/b-2",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetBySlug(gomock.Any(), "downtown").Return(downtown, nil)
				f.booking.EXPECT().Cancel(gomock.Any(), "b-2", downtown.ID).Return(bookingModel.ErrBookingNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "staff cancels a booking of their branch",
			method: http.MethodDelete,
			path:   "/v1/staff/branches/downtown/bookings/b-1",
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetBySlug(gomock.Any(), "downtown").Return(downtown, nil)
				f.booking.EXPECT().Cancel(gomock.Any(), "b-1", downtown.ID).Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "staff cannot change a room of another branch",
			method: http.MethodPatch,
			path:   "/v1/rooms/r-9",
			body:   `{"price_per_night":"120.00"}`,
			header: func(t *testing.T, f fixture) http.Header {
				return http.Header{constant.RequestHeaderAuthorization: {f.token(t, constant.RoleStaff, "downtown", time.Hour)}}
			},
			setupMock: func(f fixture) {
				f.room.EXPECT().Get(gomock.Any(), "r-9").Return(roomDto.RoomResponse{ID: "r-9", BranchID: uptown.ID}, nil)
				f.branch.EXPECT().GetBySlug(gomock.Any(), "downtown").Return(downtown, nil)
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:   "rooms of a branch are public",
			method: http.MethodGet,
			path:   "/v1/branches/downtown/rooms?is_available=true&price_max=150",
			setupMock: func(f fixture) {
				f.branch.EXPECT().GetBySlug(gomock.Any(), "downtown").Return(downtown, nil)
				f.room.EXPECT().ListByBranch(gomock.Any(), downtown.ID, gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, _ gDto.QueryParams, filter roomDto.RoomFilter) (roomDto.GetRoomsResponse, error) {
						assert.True(t, *filter.IsAvailable)
						assert.Equal(t, "150", filter.PriceMax.String())
						assert.Nil(t, filter.PriceMin)

						return roomDto.GetRoomsResponse{}, nil
					})
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed price filter",
			method:     http.MethodGet,
			path:       "/v1/branches/downtown/rooms?price_min=cheap",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "guest looks up their history",
			method: http.MethodPost,
			path:   "/v1/bookings/lookup?view=history",
			body:   `{"guest_first_name":"Jane","guest_last_name":"Doe","email_or_phone":"jane@example.com"}`,
			setupMock: func(f fixture) {
				f.booking.EXPECT().Lookup(gomock.Any(), gomock.Any(), bookingModel.ViewHistory).
					Return([]bookingDto.BookingResponse{{ID: "b-1"}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "guest lookup needs every field",
			method:     http.MethodPost,
			path:       "/v1/bookings/lookup",
			body:       `{"guest_first_name":"Jane"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			request := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.header != nil {
				for key, values := range tt.header(t, f) {
					request.Header[key] = values
				}
			}

			recorder := httptest.NewRecorder()
			f.mux.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code, recorder.Body.String())
		})
	}
}
