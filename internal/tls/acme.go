package tls

import (
	"crypto/tls"
	"net/http"

	"golang.org/x/crypto/acme/autocert"
)

// ACMEManager manages automatic certificates from Let's Encrypt
type ACMEManager struct {
	manager *autocert.Manager
	domains []string
}

func NewACMEManager(email string, domains []string, cacheDir string) *ACMEManager {
	return &ACMEManager{
		manager: &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      email,
			HostPolicy: autocert.HostWhitelist(domains...),
			Cache:      autocert.DirCache(cacheDir),
		},
		domains: domains,
	}
}

func (a *ACMEManager) Domains() []string {
	return a.domains
}

// TLSConfig answers TLS-ALPN-01 challenges on the HTTPS listener itself
func (a *ACMEManager) TLSConfig() *tls.Config {
	cfg := a.manager.TLSConfig()
	cfg.MinVersion = tls.VersionTLS12
	return cfg
}

// HTTPHandler serves HTTP-01 challenges and redirects everything else to HTTPS
func (a *ACMEManager) HTTPHandler() http.Handler {
	return a.manager.HTTPHandler(nil)
}
