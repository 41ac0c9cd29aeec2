package handlers

import (
	"net/http"

	"github.com/llcportal/consultations/libs/auth"
	"github.com/llcportal/consultations/libs/httpx"
)

type Routes struct {
	Public  *PublicHandler
	Account *AccountHandler
	Admin   *AdminHandler
	// BookLimit guards booking submission and guest cancellation. Nil disables it.
	BookLimit httpx.Middleware
}

// Register mounts the booking API on mux. Identity must already be resolved by an outer middleware.
func (rt Routes) Register(mux *http.ServeMux) {
	book := http.Handler(http.HandlerFunc(rt.Public.Book))
	guestCancel := http.Handler(http.HandlerFunc(rt.Public.Cancel))
	accountBookings := http.Handler(http.HandlerFunc(rt.Account.Bookings))
	if rt.BookLimit != nil {
		book = rt.BookLimit(book)
		guestCancel = rt.BookLimit(guestCancel)
		accountBookings = limitPosts(rt.BookLimit, accountBookings)
	}

	mux.HandleFunc("/api/v1/public/consultation-types", rt.Public.ConsultationTypes)
	mux.HandleFunc("/api/v1/public/slots", rt.Public.Slots)
	mux.Handle("/api/v1/public/book", book)
	mux.HandleFunc("/api/v1/public/bookings", rt.Public.Lookup)
	mux.Handle("/api/v1/public/bookings/cancel", guestCancel)

	mux.Handle("/api/v1/bookings", auth.RequireAccount(accountBookings))
	mux.Handle("/api/v1/bookings/cancel", auth.RequireAccount(http.HandlerFunc(rt.Account.Cancel)))

	admin := func(h http.HandlerFunc) http.Handler {
		return auth.RequireRole(h, auth.RoleAdmin)
	}
	mux.Handle("/api/v1/admin/bookings", admin(rt.Admin.Bookings))
	mux.Handle("/api/v1/admin/bookings/transition", admin(rt.Admin.Transition))
	mux.Handle("/api/v1/admin/bookings/reschedule", admin(rt.Admin.Reschedule))
	mux.Handle("/api/v1/admin/bookings/audit", admin(rt.Admin.Audit))
	mux.Handle("/api/v1/admin/stats", admin(rt.Admin.Stats))
}

func limitPosts(limit httpx.Middleware, next http.Handler) http.Handler {
	limited := limit(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
