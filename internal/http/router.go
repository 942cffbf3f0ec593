package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// RouterConfig wires handlers and middleware into the router. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Auth         *AuthHandler
	Reservations *ReservationHandler
	Classes      *ClassHandler
	Calendar     *CalendarHandler

	// Session guards every route except login.
	Session func(http.Handler) http.Handler
	// LoginLimiter throttles POST /sessions.
	LoginLimiter func(http.Handler) http.Handler
	// Idempotency wraps the authenticated POST routes.
	Idempotency func(http.Handler) http.Handler
	// Middleware wraps the whole router, outermost first.
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the API handler.
func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.HandleMethodNotAllowed = true

	protected := func(h http.HandlerFunc) http.Handler {
		return chain(h, cfg.Session)
	}
	mutating := func(h http.HandlerFunc) http.Handler {
		return chain(h, cfg.Session, cfg.Idempotency)
	}

	if cfg.Auth != nil {
		router.Handler(http.MethodPost, "/sessions", chain(http.HandlerFunc(cfg.Auth.CreateSession), cfg.LoginLimiter))
		router.Handler(http.MethodDelete, "/sessions/current", http.HandlerFunc(cfg.Auth.DeleteCurrentSession))
	}

	if cfg.Reservations != nil {
		router.Handler(http.MethodGet, "/reservations", protected(cfg.Reservations.List))
		router.Handler(http.MethodPost, "/reservations", mutating(cfg.Reservations.Create))
		router.Handler(http.MethodDelete, "/reservations/:date/:start", protected(cfg.Reservations.Delete))
		router.Handler(http.MethodPost, "/reconcile", mutating(cfg.Reservations.Reconcile))
		router.Handler(http.MethodGet, "/room/status", protected(cfg.Reservations.RoomStatus))
	}

	if cfg.Classes != nil {
		router.Handler(http.MethodGet, "/classes", protected(cfg.Classes.List))
		router.Handler(http.MethodPost, "/classes", mutating(cfg.Classes.Create))
		router.Handler(http.MethodDelete, "/classes", protected(cfg.Classes.Delete))
	}

	if cfg.Calendar != nil {
		router.Handler(http.MethodGet, "/calendar.ics", protected(cfg.Calendar.Feed))
	}

	var handler http.Handler = router
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

// chain applies middleware so that the first one listed runs first.
func chain(h http.Handler, middleware ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] != nil {
			h = middleware[i](h)
		}
	}
	return h
}
