// Package fundmetrics implements the fund metrics provider over the fund data service's HTTP API.
//
// Lookups go through three layers: an in-process TTL cache, the persistent
// client data cache, and finally the upstream service. When the upstream
// fails, expired entries from the persistent cache are served instead.
package fundmetrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/clientdata"
	"github.com/Vedpalnitk/sparrow-invest-sub003/internal/domain"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	fundsPath  = "/api/v1/funds/live/ml/funds"
	catalogKey = "all"

	DefaultTimeout        = 3 * time.Second
	DefaultBatchSize      = 50
	DefaultMaxConcurrency = 10
)

// Config configures the client
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	BatchSize      int
	MaxConcurrency int
	RateLimit      float64 // requests per second, 0 disables limiting
	CacheTTL       time.Duration
}

// Client for the fund data service
type Client struct {
	baseURL        string
	httpClient     *http.Client
	log            zerolog.Logger
	cacheRepo      *clientdata.Repository
	memCache       *cache.Cache
	limiter        *rate.Limiter
	batchSize      int
	maxConcurrency int
	ttl            time.Duration
}

// NewClient creates a fund data service client.
// cacheRepo is optional - if nil, persistent caching and stale fallback are disabled.
func NewClient(cfg Config, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = clientdata.TTLFundMetrics
	}

	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		log:            log.With().Str("client", "fundmetrics").Logger(),
		cacheRepo:      cacheRepo,
		memCache:       cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		batchSize:      cfg.BatchSize,
		maxConcurrency: cfg.MaxConcurrency,
		ttl:            cfg.CacheTTL,
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

// fundResponse is the upstream wire shape of one fund
type fundResponse struct {
	SchemeCode   int      `json:"scheme_code"`
	SchemeName   string   `json:"scheme_name"`
	FundHouse    string   `json:"fund_house"`
	Category     string   `json:"category"`
	AssetClass   string   `json:"asset_class"`
	NAV          *float64 `json:"nav"`
	Return1Y     *float64 `json:"return_1y"`
	Return3Y     *float64 `json:"return_3y"`
	Return5Y     *float64 `json:"return_5y"`
	Volatility   *float64 `json:"volatility"`
	SharpeRatio  *float64 `json:"sharpe_ratio"`
	ExpenseRatio *float64 `json:"expense_ratio"`
}

type fundsEnvelope struct {
	Funds []fundResponse `json:"funds"`
}

func (f fundResponse) toDomain() domain.FundMetrics {
	m := domain.FundMetrics{
		SchemeCode:   f.SchemeCode,
		SchemeName:   f.SchemeName,
		FundHouse:    f.FundHouse,
		Category:     f.Category,
		NAV:          f.NAV,
		Return1Y:     f.Return1Y,
		Return3Y:     f.Return3Y,
		Return5Y:     f.Return5Y,
		Volatility:   f.Volatility,
		SharpeRatio:  f.SharpeRatio,
		ExpenseRatio: f.ExpenseRatio,
	}
	if class, ok := domain.ParseAssetClass(f.AssetClass); ok {
		m.AssetClass = class
	}
	// Non-positive NAVs are treated as unknown
	if m.NAV != nil && *m.NAV <= 0 {
		m.NAV = nil
	}
	return m
}

func memKey(code int) string {
	return "scheme:" + strconv.Itoa(code)
}

// BatchLookup resolves scheme codes to metrics. Codes the service does not
// know are absent from the result. The result is usable even when err is
// non-nil: err then reports upstream chunks that failed and could not be
// served from cache.
func (c *Client) BatchLookup(ctx context.Context, codes []int) (map[int]domain.FundMetrics, error) {
	result := make(map[int]domain.FundMetrics, len(codes))
	missing := c.fromMemory(dedupe(codes), result)
	missing = c.fromStore(ctx, missing, result, true)
	if len(missing) == 0 {
		return result, nil
	}

	fetched, fetchErr := c.fetchChunks(ctx, missing)
	for code, m := range fetched {
		result[code] = m
	}
	c.remember(context.WithoutCancel(ctx), fetched)

	if fetchErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		var unresolved []int
		for _, code := range missing {
			if _, ok := result[code]; !ok {
				unresolved = append(unresolved, code)
			}
		}
		stillMissing := c.fromStore(ctx, unresolved, result, false)
		if served := len(unresolved) - len(stillMissing); served > 0 {
			c.log.Warn().Err(fetchErr).Int("stale_served", served).Msg("Fund service failed, using stale cached metrics")
		}
		return result, fetchErr
	}

	c.log.Debug().
		Int("requested", len(codes)).
		Int("fetched", len(fetched)).
		Int("unknown", len(missing)-len(fetched)).
		Msg("Fund metrics lookup completed")
	return result, nil
}

func (c *Client) fromMemory(codes []int, result map[int]domain.FundMetrics) []int {
	var missing []int
	for _, code := range codes {
		if v, ok := c.memCache.Get(memKey(code)); ok {
			result[code] = v.(domain.FundMetrics)
			continue
		}
		missing = append(missing, code)
	}
	return missing
}

// fromStore fills result from the persistent cache and returns codes still missing
func (c *Client) fromStore(ctx context.Context, codes []int, result map[int]domain.FundMetrics, freshOnly bool) []int {
	if c.cacheRepo == nil || len(codes) == 0 {
		return codes
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = strconv.Itoa(code)
	}

	var (
		rows map[string]json.RawMessage
		err  error
	)
	if freshOnly {
		rows, err = c.cacheRepo.GetManyIfFresh(ctx, clientdata.TableFundMetrics, keys)
	} else {
		rows, err = c.cacheRepo.GetMany(ctx, clientdata.TableFundMetrics, keys)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to read fund metrics cache")
		return codes
	}

	var missing []int
	for i, code := range codes {
		raw, ok := rows[keys[i]]
		if !ok {
			missing = append(missing, code)
			continue
		}
		var m domain.FundMetrics
		if err := json.Unmarshal(raw, &m); err != nil {
			missing = append(missing, code)
			continue
		}
		result[code] = m
		if freshOnly {
			c.memCache.SetDefault(memKey(code), m)
		}
	}
	return missing
}

func (c *Client) remember(ctx context.Context, fetched map[int]domain.FundMetrics) {
	if len(fetched) == 0 {
		return
	}
	entries := make(map[string]interface{}, len(fetched))
	for code, m := range fetched {
		c.memCache.SetDefault(memKey(code), m)
		entries[strconv.Itoa(code)] = m
	}
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.StoreMany(ctx, clientdata.TableFundMetrics, entries, c.ttl); err != nil {
		c.log.Warn().Err(err).Int("count", len(entries)).Msg("Failed to cache fund metrics")
	}
}

// fetchChunks queries the service in chunks of batchSize with bounded concurrency.
// A failed chunk does not cancel the others.
func (c *Client) fetchChunks(ctx context.Context, codes []int) (map[int]domain.FundMetrics, error) {
	var (
		mu      sync.Mutex
		fetched = make(map[int]domain.FundMetrics, len(codes))
		errs    []error
	)

	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrency)

	for start := 0; start < len(codes); start += c.batchSize {
		end := start + c.batchSize
		if end > len(codes) {
			end = len(codes)
		}
		chunk := codes[start:end]

		g.Go(func() error {
			funds, err := c.fetch(ctx, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			wanted := make(map[int]bool, len(chunk))
			for _, code := range chunk {
				wanted[code] = true
			}
			for _, f := range funds {
				if wanted[f.SchemeCode] {
					fetched[f.SchemeCode] = f
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return fetched, errors.Join(errs...)
}

// fetch performs one upstream request. A nil codes slice requests the full catalog.
func (c *Client) fetch(ctx context.Context, codes []int) ([]domain.FundMetrics, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	reqURL := c.baseURL + fundsPath
	if codes != nil {
		parts := make([]string, len(codes))
		for i, code := range codes {
			parts[i] = strconv.Itoa(code)
		}
		reqURL += "?" + url.Values{"scheme_codes": {strings.Join(parts, ",")}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("Fund service request failed")
		return nil, fmt.Errorf("fund service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fund service returned status %d", resp.StatusCode)
	}

	var envelope fundsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to parse fund service response: %w", err)
	}

	funds := make([]domain.FundMetrics, 0, len(envelope.Funds))
	for _, f := range envelope.Funds {
		if f.SchemeCode > 0 {
			funds = append(funds, f.toDomain())
		}
	}
	return funds, nil
}

// Catalog returns every fund the service offers, cache-first with stale fallback
func (c *Client) Catalog(ctx context.Context) ([]domain.FundMetrics, error) {
	if v, ok := c.memCache.Get(catalogKey); ok {
		return v.([]domain.FundMetrics), nil
	}

	if funds, ok := c.catalogFromStore(ctx, true); ok {
		c.memCache.SetDefault(catalogKey, funds)
		return funds, nil
	}

	funds, err := c.refreshCatalog(ctx)
	if err != nil {
		if stale, ok := c.catalogFromStore(ctx, false); ok {
			c.log.Warn().Err(err).Int("funds", len(stale)).Msg("Fund service failed, using stale cached catalog")
			return stale, nil
		}
		return nil, err
	}
	return funds, nil
}

func (c *Client) refreshCatalog(ctx context.Context) ([]domain.FundMetrics, error) {
	funds, err := c.fetch(ctx, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(funds, func(i, j int) bool { return funds[i].SchemeCode < funds[j].SchemeCode })
	c.memCache.SetDefault(catalogKey, funds)
	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(ctx, clientdata.TableFundCatalog, catalogKey, funds, clientdata.TTLFundCatalog); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache fund catalog")
		}
	}

	c.log.Info().Int("funds", len(funds)).Msg("Fetched fund catalog")
	return funds, nil
}

func (c *Client) catalogFromStore(ctx context.Context, freshOnly bool) ([]domain.FundMetrics, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	var (
		raw json.RawMessage
		err error
	)
	if freshOnly {
		raw, err = c.cacheRepo.GetIfFresh(ctx, clientdata.TableFundCatalog, catalogKey)
	} else {
		raw, err = c.cacheRepo.Get(ctx, clientdata.TableFundCatalog, catalogKey)
	}
	if err != nil || raw == nil {
		return nil, false
	}
	var funds []domain.FundMetrics
	if err := json.Unmarshal(raw, &funds); err != nil {
		return nil, false
	}
	return funds, true
}

// WarmCatalog fetches the catalog from the service and replaces both cache layers
func (c *Client) WarmCatalog(ctx context.Context) (int, error) {
	funds, err := c.refreshCatalog(ctx)
	return len(funds), err
}

func dedupe(codes []int) []int {
	seen := make(map[int]bool, len(codes))
	out := make([]int, 0, len(codes))
	for _, code := range codes {
		if code > 0 && !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	sort.Ints(out)
	return out
}
