// Package tls builds the HTTPS configuration from PEM files or ACME.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/orangehats/orangehats/internal/config"
)

// expiryWarning is how close to NotAfter a manual certificate starts warning
const expiryWarning = 14 * 24 * time.Hour

// LoadCertificate loads a key pair from PEM files
func LoadCertificate(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CertificateInfo describes a PEM certificate on disk
type CertificateInfo struct {
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
	DaysLeft  int
	DNSNames  []string
}

// GetCertificateInfo reads the first certificate of a PEM file
func GetCertificateInfo(certFile string) (*CertificateInfo, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &CertificateInfo{
		Subject:   cert.Subject.CommonName,
		Issuer:    cert.Issuer.CommonName,
		NotBefore: cert.NotBefore,
		NotAfter:  cert.NotAfter,
		DaysLeft:  int(time.Until(cert.NotAfter).Hours() / 24),
		DNSNames:  cert.DNSNames,
	}, nil
}

// Load returns the server TLS configuration, or nil when TLS is disabled.
// The ACME manager is non-nil only when ACME is the certificate source.
func Load(cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, *ACMEManager, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	if cfg.ACME.Enabled {
		if err := os.MkdirAll(cfg.ACME.CacheDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create ACME cache dir: %w", err)
		}
		m := NewACMEManager(cfg.ACME.Email, cfg.ACME.Domains, cfg.ACME.CacheDir)
		logger.Info("ACME (Let's Encrypt) enabled", "domains", cfg.ACME.Domains)
		return m.TLSConfig(), m, nil
	}

	tlsConfig, err := LoadCertificate(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, nil, err
	}

	info, err := GetCertificateInfo(cfg.CertFile)
	if err != nil {
		return nil, nil, err
	}
	if time.Until(info.NotAfter) < expiryWarning {
		logger.Warn("TLS certificate expires soon",
			"subject", info.Subject,
			"not_after", info.NotAfter,
			"days_left", info.DaysLeft,
		)
	} else {
		logger.Info("TLS certificate loaded", "subject", info.Subject, "days_left", info.DaysLeft)
	}

	return tlsConfig, nil, nil
}
