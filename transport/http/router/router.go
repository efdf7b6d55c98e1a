package router

import (
	"hotel/internal/handlers/booking"
	"hotel/internal/handlers/branch"
	"hotel/internal/handlers/room"
	"hotel/internal/handlers/staff"
	"hotel/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Branch  branch.Handler
	Room    room.Handler
	Booking booking.Handler
	Staff   staff.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	Auth           middleware.AuthRole
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		protected := routerGroup.With(r.Auth.APIKey, r.Auth.Auth, r.Auth.RBAC)

		r.DomainHandlers.Branch.Router(routerGroup, protected.With(r.Auth.BranchAccess))
		r.DomainHandlers.Room.Router(routerGroup, protected)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Staff.Router(protected.With(r.Auth.BranchAccess))
	})
}

func New(domainHandlers DomainHandlers, auth middleware.AuthRole) Router {
	return Router{
		DomainHandlers: domainHandlers,
		Auth:           auth,
	}
}
