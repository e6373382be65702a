// Package httpx is the HTTP surface: routing, auth middleware and the
// JSON handlers over the domain services.
package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type API struct {
	Authn      *Authenticator
	Auth       *AuthHandler
	Catalog    *CatalogHandler
	Promotions *PromotionsHandler
	Users      *UsersHandler
	Orders     *OrdersHandler
	Uploads    *UploadsHandler
}

func (a *API) Register(r chi.Router) {
	// Public storefront surface.
	r.Post("/auth/register", a.Auth.register)
	r.Post("/auth/login", a.Auth.login)
	r.Get("/categories", a.Catalog.listCategories)
	r.Get("/categories/{id}", a.Catalog.getCategory)
	r.Get("/products", a.Catalog.listProducts)
	r.Get("/products/{id}", a.Catalog.getProduct)
	r.Get("/promotions", a.Promotions.list)
	r.Get("/promotions/{id}", a.Promotions.get)
	r.Post("/orders/guest", a.Orders.createGuest)
	r.Get("/uploads/{filename}", a.Uploads.serve)

	// Authenticated surface.
	r.Group(func(r chi.Router) {
		r.Use(a.Authn.Middleware)

		r.Get("/auth/me", a.Auth.me)
		r.Put("/auth/profile", a.Auth.updateProfile)
		r.Put("/auth/change-password", a.Auth.changePassword)

		r.Post("/orders", a.Orders.create)
		r.Get("/orders", a.Orders.list)
		r.Get("/orders/{id}", a.Orders.get)
		r.Delete("/orders/{id}", a.Orders.cancel)

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Post("/categories", a.Catalog.createCategory)
			r.Put("/categories/{id}", a.Catalog.updateCategory)
			r.Delete("/categories/{id}", a.Catalog.deleteCategory)

			r.Post("/products", a.Catalog.createProduct)
			r.Put("/products/{id}", a.Catalog.updateProduct)
			r.Delete("/products/{id}", a.Catalog.deleteProduct)

			r.Get("/promotions/all", a.Promotions.listAll)
			r.Post("/promotions", a.Promotions.create)
			r.Put("/promotions/{id}", a.Promotions.update)
			r.Delete("/promotions/{id}", a.Promotions.delete)

			r.Get("/users", a.Users.list)
			r.Get("/users/{id}", a.Users.get)
			r.Post("/users", a.Users.create)
			r.Put("/users/{id}", a.Users.update)
			r.Delete("/users/{id}", a.Users.deactivate)

			r.Post("/orders/admin", a.Orders.createForUser)
			r.Put("/orders/{id}/status", a.Orders.updateStatus)
			r.Delete("/orders/{id}/permanent", a.Orders.deletePermanent)

			r.Post("/uploads", a.Uploads.upload)
		})
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
