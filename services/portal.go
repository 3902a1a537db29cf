// ABOUTME: Data resolution for portal pages: cache, then live API, then cache, then offline copy, then default
// ABOUTME: Collapses concurrent upstream fetches per cache key and reports where each value came from

package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/metrics"
	"github.com/markalston/acreditaciones-portal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source tells where a resolved value came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceLive     Source = "live"
	SourceOffline  Source = "offline"
	SourceFallback Source = "fallback"
)

// OfflineTTL bounds how long a last known good value may stand in for the
// live API once its regular cache entry has expired.
const OfflineTTL = 24 * time.Hour

// Result is a resolved value and its origin. Err holds the upstream error
// when the value is not live.
type Result[T any] struct {
	Value  T
	Source Source
	Err    error
}

// Portal resolves the data shown on portal pages. It is shared by all
// requests; the caller supplies the user and bearer token.
type Portal struct {
	api       *APIClient
	responses *cache.Cache
	qr        *QRService
	flight    singleflight.Group
}

func NewPortal(api *APIClient, responses *cache.Cache, qr *QRService) *Portal {
	return &Portal{api: api, responses: responses, qr: qr}
}

// lookup describes how one kind of data is cached and fetched.
type lookup[T any] struct {
	kind     string
	key      string
	ttl      time.Duration
	path     string
	field    string
	fallback func() T
}

func resolve[T any](ctx context.Context, p *Portal, l lookup[T], token string) Result[T] {
	cacheable := l.key != ""

	var cached T
	if cacheable && p.responses.Get(ctx, l.key, &cached) {
		return finish(l.kind, Result[T]{Value: cached, Source: SourceCache})
	}

	fetch := func(ctx context.Context) (T, error) {
		var value T
		body, err := p.api.AuthenticatedRequest(ctx, http.MethodGet, l.path, nil, token)
		if err != nil {
			return value, err
		}
		if !decodeField(body, l.field, &value) {
			return value, &APIError{
				Kind:    ErrInvalidResponse,
				Message: fmt.Sprintf("response has no %q field", l.field),
				Method:  http.MethodGet,
				Path:    l.path,
			}
		}
		return value, nil
	}

	if !cacheable {
		value, err := fetch(ctx)
		if err == nil {
			return finish(l.kind, Result[T]{Value: value, Source: SourceLive})
		}
		slog.Warn("Serving default data", "kind", l.kind, "error", err)
		return finish(l.kind, Result[T]{Value: l.fallback(), Source: SourceFallback, Err: err})
	}

	// Callers joining the shared fetch must not lose it when the first
	// caller's request is canceled.
	shared, err, _ := p.flight.Do(l.key, func() (any, error) {
		fctx, cancel := p.detach(ctx)
		defer cancel()

		value, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		p.responses.Set(fctx, l.key, value, l.ttl)
		p.responses.StoreOfflineData(fctx, l.key, value, OfflineTTL)
		return value, nil
	})
	if err == nil {
		return finish(l.kind, Result[T]{Value: shared.(T), Source: SourceLive})
	}

	// Another request may have filled the key while this one was failing.
	if p.responses.Get(ctx, l.key, &cached) {
		slog.Warn("Serving cached data", "kind", l.kind, "key", l.key, "error", err)
		return finish(l.kind, Result[T]{Value: cached, Source: SourceCache, Err: err})
	}

	var offline T
	if p.responses.GetOfflineData(ctx, l.key, &offline) {
		slog.Warn("Serving offline data", "kind", l.kind, "key", l.key, "error", err)
		return finish(l.kind, Result[T]{Value: offline, Source: SourceOffline, Err: err})
	}

	slog.Warn("Serving default data", "kind", l.kind, "key", l.key, "error", err)
	return finish(l.kind, Result[T]{Value: l.fallback(), Source: SourceFallback, Err: err})
}

// detach keeps ctx values but not its cancellation, bounded by the time the
// API client may spend on one request including retries.
func (p *Portal) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if budget := p.api.RequestBudget(); budget > 0 {
		return context.WithTimeout(detached, budget)
	}
	return context.WithCancel(detached)
}

// userKey returns "" for a profile without an id so it never shares a cache
// entry with other such profiles.
func userKey(id string, key func(string) string) string {
	if id == "" {
		return ""
	}
	return key(id)
}

func finish[T any](kind string, r Result[T]) Result[T] {
	metrics.RecordResolution(kind, string(r.Source))
	slog.Debug("Resolved data", "kind", kind, "source", r.Source)
	return r
}

func (p *Portal) Status(ctx context.Context, user *models.User, token string) Result[models.UserStatus] {
	if user == nil {
		return finish("status", Result[models.UserStatus]{
			Value:  models.UserStatus{Status: "unknown", Message: "Usuario no encontrado"},
			Source: SourceFallback,
		})
	}
	return resolve(ctx, p, lookup[models.UserStatus]{
		kind:     "status",
		key:      userKey(user.ID.String(), cache.StatusKey),
		ttl:      cache.StatusTTL,
		path:     "/user/status",
		field:    "status",
		fallback: models.DefaultStatus,
	}, token)
}

// Promotions are shared by all users.
func (p *Portal) Promotions(ctx context.Context, token string) Result[[]models.Promotion] {
	return resolve(ctx, p, lookup[[]models.Promotion]{
		kind:     "promotions",
		key:      cache.PromotionsKey,
		ttl:      cache.PromotionsTTL,
		path:     "/user/promotions",
		field:    "promotions",
		fallback: models.SamplePromotions,
	}, token)
}

func (p *Portal) Team(ctx context.Context, user *models.User, token string) Result[models.Team] {
	if user == nil {
		return finish("team", Result[models.Team]{Value: models.MissingTeam(), Source: SourceFallback})
	}
	return resolve(ctx, p, lookup[models.Team]{
		kind:     "team",
		key:      userKey(user.TeamKeyID(), cache.TeamKey),
		ttl:      cache.TeamTTL,
		path:     "/user/team",
		field:    "team",
		fallback: models.DefaultTeam,
	}, token)
}

func (p *Portal) History(ctx context.Context, user *models.User, token string) Result[[]models.HistoryEntry] {
	if user == nil {
		return finish("history", Result[[]models.HistoryEntry]{Value: models.DefaultHistory(), Source: SourceFallback})
	}
	return resolve(ctx, p, lookup[[]models.HistoryEntry]{
		kind:     "history",
		key:      userKey(user.ID.String(), cache.HistoryKey),
		ttl:      cache.HistoryTTL,
		path:     "/user/history",
		field:    "history",
		fallback: models.DefaultHistory,
	}, token)
}

func (p *Portal) Statistics(ctx context.Context, user *models.User, token string) Result[models.Statistics] {
	if user == nil {
		return finish("statistics", Result[models.Statistics]{Value: models.DefaultStatistics(), Source: SourceFallback})
	}
	return resolve(ctx, p, lookup[models.Statistics]{
		kind:     "statistics",
		key:      userKey(user.ID.String(), cache.StatisticsKey),
		ttl:      cache.StatisticsTTL,
		path:     "/user/statistics",
		field:    "statistics",
		fallback: models.DefaultStatistics,
	}, token)
}

// QR falls back to a code generated locally from the user record.
func (p *Portal) QR(ctx context.Context, user *models.User, token string) Result[models.QRCode] {
	if user == nil {
		return finish("qr", Result[models.QRCode]{Source: SourceFallback})
	}
	return resolve(ctx, p, lookup[models.QRCode]{
		kind:  "qr",
		key:   userKey(user.ID.String(), cache.QRKey),
		ttl:   cache.QRTTL,
		path:  "/user/qr",
		field: "qr",
		fallback: func() models.QRCode {
			return p.qr.ForUser(user, DefaultQRSize)
		},
	}, token)
}

// Dashboard loads status and promotions concurrently.
func (p *Portal) Dashboard(ctx context.Context, user *models.User, token string) models.DashboardData {
	var data models.DashboardData

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.Status = p.Status(gctx, user, token).Value
		return nil
	})
	g.Go(func() error {
		data.Promotions = p.Promotions(gctx, token).Value
		return nil
	})
	_ = g.Wait()

	return data
}

// HistoryPage loads history and statistics concurrently.
func (p *Portal) HistoryPage(ctx context.Context, user *models.User, token string) models.HistoryResponse {
	var data models.HistoryResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data.History = p.History(gctx, user, token).Value
		return nil
	})
	g.Go(func() error {
		data.Statistics = p.Statistics(gctx, user, token).Value
		return nil
	})
	_ = g.Wait()

	return data
}

// CurrentUser returns the live profile, falling back to the cached profile
// of the token's subject when the API cannot answer.
func (p *Portal) CurrentUser(ctx context.Context, auth *AuthSession) *models.User {
	if user := auth.GetUser(ctx); user != nil {
		return user
	}

	claims := auth.Claims(ctx)
	if claims == nil || claims.Subject == "" {
		return nil
	}

	var cached models.User
	if p.responses.CachedUserData(ctx, claims.Subject, &cached) {
		slog.Warn("Serving cached profile", "user_id", claims.Subject)
		return &cached
	}
	return nil
}

// UpdateProfile sends profile changes and drops everything cached for the user.
func (p *Portal) UpdateProfile(ctx context.Context, user *models.User, token string, changes map[string]string) error {
	if _, err := p.api.AuthenticatedRequest(ctx, http.MethodPut, "/user/profile", changes, token); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	p.responses.InvalidateUserCache(ctx, user.ID.String(), user.TeamKeyID())
	return nil
}

func (p *Portal) ChangePassword(ctx context.Context, token string, req models.ChangePasswordRequest) error {
	if _, err := p.api.AuthenticatedRequest(ctx, http.MethodPut, "/user/change-password", req, token); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return nil
}
