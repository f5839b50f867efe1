package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vitrin-cms/server/internal/api/handlers"
	"github.com/vitrin-cms/server/internal/api/middleware"
	"github.com/vitrin-cms/server/internal/assistant"
	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/auth"
	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/domain/blogs"
	"github.com/vitrin-cms/server/internal/domain/content"
	"github.com/vitrin-cms/server/internal/domain/dashboard"
	"github.com/vitrin-cms/server/internal/domain/events"
	"github.com/vitrin-cms/server/internal/domain/media"
	"github.com/vitrin-cms/server/internal/domain/menus"
	"github.com/vitrin-cms/server/internal/domain/pages"
	"github.com/vitrin-cms/server/internal/domain/products"
	"github.com/vitrin-cms/server/internal/domain/settings"
	"github.com/vitrin-cms/server/internal/domain/sliders"
	"github.com/vitrin-cms/server/internal/domain/team"
	"github.com/vitrin-cms/server/internal/domain/users"
	"github.com/vitrin-cms/server/internal/i18n"
	"github.com/vitrin-cms/server/internal/metrics"
	"github.com/vitrin-cms/server/internal/search"
)

// uploadOverhead leaves room for multipart boundaries and form fields on
// top of the configured file size limit.
const uploadOverhead = 1 << 20

// Deps is everything the HTTP layer serves. Weather stays nil when no API
// key is configured.
type Deps struct {
	Config  config.Config
	Logger  zerolog.Logger
	Locales i18n.Set
	JWT     *auth.JWTManager
	Audit   *audit.Logger
	Health  *handlers.HealthChecker
	Build   handlers.BuildInfo

	Users     *users.Service
	Products  *products.Service
	Blogs     *blogs.Service
	Events    *events.Service
	Team      *team.Service
	Sliders   *sliders.Service
	Pages     *pages.Service
	Menus     *menus.Service
	Settings  *settings.Service
	Media     *media.Service
	Dashboard *dashboard.Service
	Search    *search.Service
	Weather   handlers.WeatherLookup
	Assistant *assistant.Service
}

func NewRouter(d Deps) http.Handler {
	env := d.Config.Environment
	mux := http.NewServeMux()

	limit := middleware.RateLimit(d.Config.RateLimit, env)
	tiered := func(tier middleware.RateLimitTier, size func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		return func(h http.Handler) http.Handler {
			return middleware.WithRateLimitTierHandler(tier)(limit(size(h)))
		}
	}
	public := tiered(middleware.TierPublic, middleware.PublicRequestSize())
	login := tiered(middleware.TierLogin, middleware.AdminRequestSize())

	authenticate := middleware.Authenticate(d.JWT, env)
	csrf := middleware.CSRFProtection([]byte(d.Config.Auth.CSRFKey), d.Config.Auth.CookieSecure, env)
	guarded := func(role auth.Role, size func(http.Handler) http.Handler) func(http.HandlerFunc) http.Handler {
		requireRole := middleware.RequireRole(role, env)
		outer := tiered(middleware.TierAdmin, size)
		return func(h http.HandlerFunc) http.Handler {
			return outer(authenticate(requireRole(csrf(h))))
		}
	}
	viewer := guarded(auth.RoleViewer, middleware.AdminRequestSize())
	editor := guarded(auth.RoleEditor, middleware.AdminRequestSize())
	admin := guarded(auth.RoleAdmin, middleware.AdminRequestSize())
	uploader := guarded(auth.RoleEditor, middleware.RequestSize(d.Config.Storage.MaxUploadBytes+uploadOverhead))

	// Operations
	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", d.Health.Readyz())
	mux.Handle("GET /health", d.Health.Health())
	mux.Handle("GET /version", handlers.Version(d.Build))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// Authentication
	authHandler := handlers.NewAdminAuthHandler(d.Users, d.Config.Auth.JWTExpiry, d.Config.Auth.CookieSecure, d.Audit, env)
	mux.Handle("POST /api/v1/admin/auth/login", login(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/v1/admin/auth/logout", viewer(authHandler.Logout))
	mux.Handle("GET /api/v1/admin/auth/me", viewer(authHandler.Me))
	mux.Handle("GET /api/v1/admin/csrf", viewer(authHandler.CSRF))
	invitations := handlers.NewInvitationsHandler(d.Users, env)
	mux.Handle("POST /api/v1/admin/invitations/accept", login(http.HandlerFunc(invitations.Accept)))

	mux.Handle("GET /api/v1/admin/dashboard", viewer(handlers.NewDashboardHandler(d.Dashboard, env).Summary))

	// Content
	registerContent(mux, "products", viewer, editor, handlers.NewContentHandler[products.Product, products.Input, products.Filters](
		"products", d.Products, products.ParseFilters, func(p *products.Product) string { return p.ID }, d.Audit, env))
	registerContent(mux, "blogs", viewer, editor, handlers.NewContentHandler[blogs.Post, blogs.Input, blogs.Filters](
		"blogs", d.Blogs, blogs.ParseFilters, func(p *blogs.Post) string { return p.ID }, d.Audit, env))
	registerContent(mux, "events", viewer, editor, handlers.NewContentHandler[events.Event, events.Input, events.Filters](
		"events", d.Events, events.ParseFilters, func(e *events.Event) string { return e.ID }, d.Audit, env))
	registerContent(mux, "team", viewer, editor, handlers.NewContentHandler[team.Member, team.Input, content.ListParams](
		"team", d.Team, team.ParseFilters, func(m *team.Member) string { return m.ID }, d.Audit, env))
	registerContent(mux, "sliders", viewer, editor, handlers.NewContentHandler[sliders.Slider, sliders.Input, sliders.Filters](
		"sliders", d.Sliders, sliders.ParseFilters, func(s *sliders.Slider) string { return s.ID }, d.Audit, env))
	registerContent(mux, "pages", viewer, editor, handlers.NewContentHandler[pages.Page, pages.Input, content.ListParams](
		"pages", d.Pages, pages.ParseFilters, func(p *pages.Page) string { return p.ID }, d.Audit, env))
	mux.Handle("POST /api/v1/admin/team/reorder", editor(handlers.NewReorderHandler("team", d.Team, d.Audit, env).ServeHTTP))
	mux.Handle("POST /api/v1/admin/sliders/reorder", editor(handlers.NewReorderHandler("sliders", d.Sliders, d.Audit, env).ServeHTTP))

	// Menus
	menusHandler := handlers.NewMenusHandler(d.Menus, d.Audit, env)
	mux.Handle("GET /api/v1/admin/menus", viewer(menusHandler.List))
	mux.Handle("POST /api/v1/admin/menus", editor(menusHandler.Create))
	mux.Handle("DELETE /api/v1/admin/menus/{id}", editor(menusHandler.Delete))
	mux.Handle("GET /api/v1/admin/menus/{key}/tree", viewer(menusHandler.Tree))
	mux.Handle("POST /api/v1/admin/menus/{id}/items", editor(menusHandler.CreateItem))
	mux.Handle("POST /api/v1/admin/menus/{id}/reorder", editor(menusHandler.Reorder))
	mux.Handle("PUT /api/v1/admin/menu-items/{id}", editor(menusHandler.UpdateItem))
	mux.Handle("DELETE /api/v1/admin/menu-items/{id}", editor(menusHandler.DeleteItem))

	// Settings
	settingsHandler := handlers.NewSettingsHandler(d.Settings, d.Audit, env)
	mux.Handle("GET /api/v1/admin/settings", viewer(settingsHandler.List))
	mux.Handle("PUT /api/v1/admin/settings", admin(settingsHandler.Update))

	// Media
	mediaHandler := handlers.NewMediaHandler(d.Media, d.Config.Storage.DefaultBackend, d.Audit, env)
	mux.Handle("GET /api/v1/admin/media", viewer(mediaHandler.List))
	mux.Handle("POST /api/v1/admin/media", uploader(mediaHandler.Upload))
	mux.Handle("GET /api/v1/admin/media/backends", viewer(mediaHandler.Backends))
	mux.Handle("GET /api/v1/admin/media/{id}", viewer(mediaHandler.Get))
	mux.Handle("PATCH /api/v1/admin/media/{id}", editor(mediaHandler.Update))
	mux.Handle("DELETE /api/v1/admin/media/{id}", editor(mediaHandler.Delete))

	mux.Handle("POST /api/v1/admin/assistant/complete", editor(handlers.NewAssistantHandler(d.Assistant, d.Audit, env).Complete))

	// Users
	usersHandler := handlers.NewAdminUsersHandler(d.Users, env)
	mux.Handle("GET /api/v1/admin/users", admin(usersHandler.ListUsers))
	mux.Handle("POST /api/v1/admin/users", admin(usersHandler.CreateUser))
	mux.Handle("GET /api/v1/admin/users/{id}", admin(usersHandler.GetUser))
	mux.Handle("PATCH /api/v1/admin/users/{id}", admin(usersHandler.UpdateUser))
	mux.Handle("DELETE /api/v1/admin/users/{id}", admin(usersHandler.DeleteUser))
	mux.Handle("POST /api/v1/admin/users/{id}/invitation", admin(usersHandler.ResendInvitation))

	// Public. Settings stay reachable during maintenance so the site can
	// show its notice.
	var gate middleware.MaintenanceChecker
	if d.Settings != nil {
		gate = d.Settings
	}
	maintenance := middleware.Maintenance(gate, env)
	site := func(h http.Handler) http.Handler { return public(maintenance(h)) }
	p := handlers.NewPublicHandler(d.Locales, env)
	mux.Handle("GET /api/v1/public/products", site(handlers.List[products.View](p, d.Products)))
	mux.Handle("GET /api/v1/public/products/categories", site(p.Categories(d.Products)))
	mux.Handle("GET /api/v1/public/products/{slug}", site(handlers.Get[products.View](p, d.Products)))
	mux.Handle("GET /api/v1/public/blogs", site(handlers.List[blogs.View](p, d.Blogs)))
	mux.Handle("GET /api/v1/public/blogs/{slug}", site(handlers.Get[blogs.View](p, d.Blogs)))
	mux.Handle("GET /api/v1/public/events", site(handlers.List[events.View](p, d.Events)))
	mux.Handle("GET /api/v1/public/events/{slug}", site(handlers.Get[events.View](p, d.Events)))
	mux.Handle("GET /api/v1/public/team", site(handlers.List[team.View](p, d.Team)))
	mux.Handle("GET /api/v1/public/sliders", site(handlers.List[sliders.View](p, d.Sliders)))
	mux.Handle("GET /api/v1/public/pages/{slug}", site(handlers.Get[pages.View](p, d.Pages)))
	mux.Handle("GET /api/v1/public/menus/{key}", site(p.Menu(d.Menus)))
	mux.Handle("GET /api/v1/public/settings", public(p.Settings(d.Settings)))
	mux.Handle("GET /api/v1/public/search", site(p.Search(d.Search)))
	mux.Handle("GET /api/v1/public/weather", site(p.Weather(d.Weather)))

	var handler http.Handler = metrics.HTTPMiddleware(mux)
	handler = middleware.CORS(d.Config.CORS, d.Logger)(handler)
	handler = middleware.SecurityHeaders(d.Config.Auth.CookieSecure)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestLogging(d.Logger)(handler)
	handler = middleware.CorrelationID(d.Logger)(handler)
	return handler
}

type crudHandler interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

func registerContent(mux *http.ServeMux, typ string, read, write func(http.HandlerFunc) http.Handler, h crudHandler) {
	base := "/api/v1/admin/" + typ
	mux.Handle("GET "+base, read(h.List))
	mux.Handle("POST "+base, write(h.Create))
	mux.Handle("GET "+base+"/{id}", read(h.Get))
	mux.Handle("PUT "+base+"/{id}", write(h.Update))
	mux.Handle("DELETE "+base+"/{id}", write(h.Delete))
}
