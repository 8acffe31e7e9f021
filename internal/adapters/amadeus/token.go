package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"travel_gateway/internal/adapters/observability"
	"travel_gateway/internal/domain"
)

// tokens are refreshed this long before the provider says they expire
const tokenLeeway = 30 * time.Second

const defaultTimeout = 20 * time.Second

// tokenSource hands out OAuth2 client-credentials tokens, caching them in a
// TokenStore and collapsing concurrent refreshes into one token request.
type tokenSource struct {
	base   string
	id     string
	secret string
	hc     *http.Client
	store  domain.TokenStore
	key    string
	group  singleflight.Group
}

func newTokenSource(base, id, secret string, hc *http.Client, store domain.TokenStore) *tokenSource {
	return &tokenSource{
		base:   base,
		id:     id,
		secret: secret,
		hc:     hc,
		store:  store,
		key:    "amadeus:token:" + id,
	}
}

func (t *tokenSource) token(ctx context.Context) (string, error) {
	tok, ok, err := t.store.Get(ctx, t.key)
	if err != nil {
		// a failed read falls through to a fresh token
		log.Warn().Err(err).Msg("token store read failed; requesting a fresh token")
	}
	if ok && tok != "" {
		return tok, nil
	}

	// the fetch is shared by every waiting caller, so it runs detached from
	// any one of them; each caller still gives up on its own context
	ch := t.group.DoChan(t.key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.fetchTimeout())
		defer cancel()
		return t.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return "", &domain.Fault{Service: service, Op: "token", Kind: domain.TransportFaultKind(ctx.Err()), Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (t *tokenSource) fetchTimeout() time.Duration {
	if t.hc.Timeout > 0 {
		return t.hc.Timeout
	}
	return defaultTimeout
}

// invalidate drops the cached token so the next call authenticates again.
func (t *tokenSource) invalidate(ctx context.Context) {
	if err := t.store.Del(ctx, t.key); err != nil {
		log.Warn().Err(err).Msg("token store delete failed")
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (t *tokenSource) fetch(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.id)
	form.Set("client_secret", t.secret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &domain.Fault{Service: service, Op: "token", Kind: domain.FaultUnexpected, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := t.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, "token", 0, time.Since(start))
		return "", &domain.Fault{Service: service, Op: "token", Kind: domain.TransportFaultKind(err), Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, "token", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &domain.Fault{
			Service: service, Op: "token", Kind: domain.FaultConfiguration, Status: resp.StatusCode,
			Detail: "client credentials rejected: " + strings.TrimSpace(string(b)),
		}
	default:
		return "", faultFromResponse("token", resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &domain.Fault{Service: service, Op: "token", Kind: domain.FaultUnexpected, Err: fmt.Errorf("decode token: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", &domain.Fault{Service: service, Op: "token", Kind: domain.FaultUnexpected, Detail: "empty access_token"}
	}
	observability.ObserveToken("provider", "refresh")

	if ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenLeeway; ttl > 0 {
		if err := t.store.Set(ctx, t.key, tr.AccessToken, ttl); err != nil {
			log.Warn().Err(err).Msg("token store write failed")
		}
	}
	return tr.AccessToken, nil
}

// MemoryTokenStore is the process-local TokenStore used when no Redis is configured.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryToken
	now     func() time.Time
}

type memoryToken struct {
	value   string
	expires time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: map[string]memoryToken{}, now: time.Now}
}

func (m *MemoryTokenStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expires) {
		delete(m.entries, key)
		observability.ObserveToken("memory", "miss")
		return "", false, nil
	}
	observability.ObserveToken("memory", "hit")
	return e.value, true, nil
}

func (m *MemoryTokenStore) Set(_ context.Context, key, token string, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryToken{value: token, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	observability.ObserveToken("memory", "evict")
	return nil
}
