// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/diag"
	"github.com/H0llyW00dzZ/eap-radius-diag/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/eap-radius-diag/src/internal/x509/certs"
)

// maxCRLSize bounds a downloaded CRL body.
const maxCRLSize = 32 << 20

// ErrCRLStatus is returned when a CDP answers with a non-200 status.
var ErrCRLStatus = errors.New("x509chain: unexpected CRL download status")

// CRLFetcher downloads the CRL published at a distribution point URL.
type CRLFetcher interface {
	FetchCRL(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches CRLs over HTTP and keeps them in a [CRLCache].
type HTTPFetcher struct {
	HTTP  *HTTPConfig
	Cache *CRLCache
}

// NewHTTPFetcher returns a fetcher using cfg and cache. A nil cache
// disables caching.
func NewHTTPFetcher(cfg *HTTPConfig, cache *CRLCache) *HTTPFetcher {
	return &HTTPFetcher{HTTP: cfg, Cache: cache}
}

// FetchCRL returns the raw CRL at url, from the cache when fresh.
// Parsable CRLs are cached until their NextUpdate; others are returned but
// not cached.
func (f *HTTPFetcher) FetchCRL(ctx context.Context, url string) ([]byte, error) {
	if f.Cache != nil {
		if data, ok := f.Cache.Get(url); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create CRL request: %w", err)
	}
	req.Header.Set("User-Agent", f.HTTP.GetUserAgent())

	resp, err := f.HTTP.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("CRL request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrCRLStatus, resp.StatusCode, url)
	}

	data, err := gc.ReadAll(resp.Body, maxCRLSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRL: %w", err)
	}

	if f.Cache != nil {
		if crl, err := x509certs.DecodeCRL(data); err == nil && crl.NextUpdate.After(time.Now()) {
			f.Cache.Set(url, data, crl.NextUpdate)
		}
	}

	return data, nil
}

// firstHTTPURL returns the first distribution point using an http or https
// scheme.
func firstHTTPURL(points []string) (string, bool) {
	for _, p := range points {
		if strings.HasPrefix(strings.ToLower(p), "http") {
			return p, true
		}
	}
	return "", false
}

// AttachCRL downloads the CRL of rec from its first HTTP distribution point
// and stores it PEM armored on the record. It returns the oddity describing
// why no CRL could be attached, or "" on success.
func (in *Inspector) AttachCRL(ctx context.Context, rec *Record) diag.Oddity {
	points := rec.Cert.CRLDistributionPoints
	if len(points) == 0 {
		return diag.OddityNoCDP
	}

	url, ok := firstHTTPURL(points)
	if !ok {
		return diag.OddityNoCDPHTTP
	}

	if in.Fetcher == nil {
		return diag.OddityNoCRLAtCDPURL
	}

	data, err := in.Fetcher.FetchCRL(ctx, url)
	if err != nil {
		in.log().Debugf("CRL download from %s failed: %v", url, err)
		return diag.OddityNoCRLAtCDPURL
	}

	rec.CRL = x509certs.NormalizeCRL(data)
	return ""
}
