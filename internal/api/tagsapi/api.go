package tagsapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/papertags/smart-papertags-app/internal/auth"
	"github.com/papertags/smart-papertags-app/internal/integrations/geoip"
	"github.com/papertags/smart-papertags-app/internal/models"
	"github.com/papertags/smart-papertags-app/internal/services/scans"
	"github.com/papertags/smart-papertags-app/internal/services/tags"
	"github.com/papertags/smart-papertags-app/internal/storage/pgtags"
)

type TagService interface {
	Generate(ctx context.Context, adminID *uint64) (*models.Tag, error)
	Assign(ctx context.Context, publicID string) (*models.Tag, error)
	Unassign(ctx context.Context, publicID string) error
	Claim(ctx context.Context, req tags.ClaimRequest) (*models.Tag, error)
	Delete(ctx context.Context, publicID string) error
	UpdateContact(ctx context.Context, publicID string, ownerID uint64, ch pgtags.ContactChanges) (*models.Tag, error)
	GetBySecretID(ctx context.Context, secretID string) (*models.Tag, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]models.Tag, error)
	ListAll(ctx context.Context) ([]models.Tag, error)
	ScanHistory(ctx context.Context, publicID string, ownerID uint64, limit, offset uint64) ([]models.ScanEvent, error)
	Register(ctx context.Context, req tags.RegisterRequest) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string, requireAdmin bool) (*models.Account, error)
}

type ScanService interface {
	ResolveScan(ctx context.Context, secretID, finderIP string) (*scans.Resolution, error)
	SubmitFound(ctx context.Context, report scans.FoundReport) error
	Stats() scans.StatsSnapshot
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type LocationResolver interface {
	Resolve(ctx context.Context, ip string) geoip.Location
}

type API struct {
	tags    TagService
	scans   ScanService
	geo     LocationResolver
	tokens  *auth.Tokens
	limiter RateLimiter

	scanRateLimit int64
	baseURL       string
	swaggerPath   string
}

func NewAPI(tagSvc TagService, scanSvc ScanService, geo LocationResolver, tokens *auth.Tokens, limiter RateLimiter, scanRateLimit int, baseURL, swaggerPath string) *API {
	return &API{
		tags:          tagSvc,
		scans:         scanSvc,
		geo:           geo,
		tokens:        tokens,
		limiter:       limiter,
		scanRateLimit: int64(scanRateLimit),
		baseURL:       baseURL,
		swaggerPath:   swaggerPath,
	}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", a.health)
	r.With(a.scanRateLimited).Get("/tag/{secretId}", a.resolveScan)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tag-info/{secretId}", a.tagInfo)
		r.Post("/claim-tag", a.claimTag)
		r.With(a.scanRateLimited).Post("/tag/{secretId}/found", a.submitFoundBySecret)
		r.With(a.scanRateLimited).Post("/scan/{publicId}", a.submitFoundByPublic)
		r.Get("/ip-location", a.ipLocation)

		r.Post("/register", a.register)
		r.Post("/login", a.login)
		r.Post("/admin/login", a.adminLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.tokens.RequireRole(models.RoleUser))
			r.Get("/my-tags", a.myTags)
			r.Put("/tags/{publicId}", a.updateTag)
			r.Get("/tags/{publicId}/scans", a.tagScans)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.tokens.RequireRole(models.RoleAdmin))
			r.Post("/admin/generate-tags", a.generateTags)
			r.Get("/admin/tags", a.listAllTags)
			r.Post("/admin/tags/{publicId}/assign", a.assignTag)
			r.Post("/admin/tags/{publicId}/unassign", a.unassignTag)
			r.Delete("/admin/tags/{publicId}", a.deleteTag)
		})
	})

	if a.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, a.swaggerPath)
		})
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))
	}

	return r
}
