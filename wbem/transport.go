package wbem

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/proxy"
)

var tracer = otel.Tracer("github.com/rob-gra/go-wbem/wbem")

// transport is the pooled TLS-capable HTTP client described in spec
// §4.4, built once per Connection and shared across concurrent callers.
// It owns the connect/read timeout and retry-budget discipline; encoding
// and decoding happen outside it.
type transport struct {
	client    *http.Client
	cfg       Config
	targetURL *url.URL
}

func newTransport(cfg Config) (*transport, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("wbem: invalid URL %q: %w", cfg.URL, err)
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.NoVerification {
		tlsConfig.InsecureSkipVerify = true
	}
	if cfg.CACerts != "" {
		pool, err := loadCACerts(cfg.CACerts)
		if err != nil {
			return nil, fmt.Errorf("wbem: loading CA certificates: %w", err)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("wbem: loading client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}

	rt := &http.Transport{
		TLSClientConfig: tlsConfig,
		DialContext:     dialer.DialContext,
	}

	if proxyURL := selectProxy(cfg.Proxies, u.Scheme); proxyURL != nil {
		if err := applyProxy(rt, dialer, proxyURL); err != nil {
			return nil, err
		}
	}

	client := &http.Client{
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.RedirectRetries {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &transport{client: client, cfg: cfg, targetURL: u}, nil
}

// loadCACerts builds a certificate pool from a single PEM bundle file or
// a directory of PEM files, per spec §6.3 ca_certs.
func loadCACerts(path string) (*x509.CertPool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !info.IsDir() {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", path)
		}
		return pool, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		pem, err := os.ReadFile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		pool.AppendCertsFromPEM(pem)
	}
	return pool, nil
}

// selectProxy picks the configured proxy URL for the given target
// scheme, per spec §4.4.4.
func selectProxy(p Proxies, scheme string) *url.URL {
	if scheme == "https" && p.HTTPS != nil {
		return p.HTTPS
	}
	if scheme == "http" && p.HTTP != nil {
		return p.HTTP
	}
	return nil
}

// applyProxy wires an http, socks5, or socks5h proxy URL into rt. socks5
// resolves hostnames client-side; socks5h resolves them at the proxy.
func applyProxy(rt *http.Transport, dialer *net.Dialer, proxyURL *url.URL) error {
	switch proxyURL.Scheme {
	case "http", "https":
		rt.Proxy = http.ProxyURL(proxyURL)
		return nil
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			pass, _ := proxyURL.User.Password()
			auth = &proxy.Auth{User: proxyURL.User.Username(), Password: pass}
		}
		d, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, dialer)
		if err != nil {
			return fmt.Errorf("wbem: building SOCKS5 dialer: %w", err)
		}
		if ctxDialer, ok := d.(proxy.ContextDialer); ok {
			rt.DialContext = ctxDialer.DialContext
		} else {
			rt.Dial = d.Dial
		}
		return nil
	default:
		return fmt.Errorf("wbem: unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

// headerSet describes the CIM-XML-specific HTTP headers of spec §4.4.
type headerSet struct {
	Method        string // "MethodCall" or "MethodRequest"
	CIMMethod     string // intrinsic method name, empty for extrinsic
	CIMMethodCall string // extrinsic method name
	CIMObject     string // target namespace or object path
}

// do issues one CIM-XML operation over HTTP, applying the connect/read
// timeout-and-retry discipline of spec §4.4.1-§4.4.3. opName is used for
// error context and as the span's cim.operation attribute.
func (t *transport) do(ctx context.Context, opName string, headers headerSet, body []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "cim.operation", trace.WithAttributes(
		attribute.String("cim.operation", opName),
		attribute.String("cim.object", headers.CIMObject),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, newCancelledError(opName)
	}

	totalBudget := t.cfg.TotalRetries
	retriesUsed := 0
	spendRetry := func() bool {
		if totalBudget <= 0 {
			return true
		}
		if retriesUsed >= totalBudget {
			return false
		}
		retriesUsed++
		return true
	}

	for attempt := 0; ; attempt++ {
		respBody, err := t.attempt(ctx, opName, headers, body)
		if err == nil {
			return respBody, nil
		}

		var wbemErr *Error
		if !errors.As(err, &wbemErr) {
			return nil, err
		}

		var limit int
		switch wbemErr.Kind {
		case KindConnectionError:
			limit = t.cfg.ConnectRetries
		case KindTimeoutError:
			limit = t.cfg.ReadRetries
		case KindHTTPError:
			limit = t.cfg.RedirectRetries
		default:
			return nil, err
		}
		if attempt >= limit || !spendRetry() {
			return nil, err
		}

		backoff := time.Duration(t.cfg.BackoffFactor * math.Pow(2, float64(attempt)) * float64(time.Second))
		select {
		case <-ctx.Done():
			return nil, newCancelledError(opName)
		case <-time.After(backoff):
		}
	}
}

func (t *transport) attempt(ctx context.Context, opName string, headers headerSet, body []byte) ([]byte, error) {
	readCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(readCtx, http.MethodPost, t.targetURL.String()+"/cimom", bytes.NewReader(body))
	if err != nil {
		return nil, newConnectionError(opName, t.targetURL.String(), err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.Header.Set("CIMOperation", headers.Method)
	if headers.CIMMethod != "" {
		req.Header.Set("CIMMethod", headers.CIMMethod)
	}
	if headers.CIMMethodCall != "" {
		req.Header.Set("CIMMethodCall", headers.CIMMethodCall)
	}
	req.Header.Set("CIMObject", headers.CIMObject)
	if t.cfg.Credentials != nil {
		token := base64.StdEncoding.EncodeToString([]byte(t.cfg.Credentials.User + ":" + t.cfg.Credentials.Pass))
		req.Header.Set("Authorization", "Basic "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if readCtx.Err() == context.DeadlineExceeded {
			return nil, newTimeoutError(opName, t.targetURL.String(), t.cfg.Timeout, err)
		}
		if isTLSError(err) || isConnRefused(err) {
			return nil, newConnectionError(opName, t.targetURL.String(), err)
		}
		return nil, newConnectionError(opName, t.targetURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusProxyAuthRequired {
		return nil, newAuthError(opName, t.targetURL.String(), fmt.Errorf("http status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil, newHTTPError(opName, t.targetURL.String(), fmt.Errorf("redirect exhausted, http status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(opName, t.targetURL.String(), fmt.Errorf("http status %d", resp.StatusCode))
	}

	if err := validateContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, newHeaderParseError(opName, err.Error())
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newConnectionError(opName, t.targetURL.String(), err)
	}
	return respBody, nil
}

// validateContentType accepts application/xml or text/xml, optionally
// with a charset parameter, per spec §4.3.2.
func validateContentType(ct string) error {
	if ct == "" {
		return fmt.Errorf("missing Content-Type header")
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fmt.Errorf("malformed Content-Type %q: %w", ct, err)
	}
	switch mediaType {
	case "application/xml", "text/xml":
		return nil
	default:
		return fmt.Errorf("unexpected Content-Type %q", mediaType)
	}
}

func isConnRefused(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		errors.Is(err, context.DeadlineExceeded) && strings.Contains(err.Error(), "dial")
}

func isTLSError(err error) bool {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	return strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:")
}
