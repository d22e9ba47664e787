package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"get2put"},
		},
		NotBefore: time.Now(),
		NotAfter:  time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:  x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}

	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: derBytes,
	})
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})

	return tls.X509KeyPair(certPEM, keyPEM)
}

// Servers runs the plain listener and, when tlsAddr is set, a second
// listener with a self-signed certificate.
type Servers struct {
	logger *logrus.Logger
	http   *http.Server
	https  *http.Server
}

func New(logger *logrus.Logger, addr, tlsAddr string, handler http.Handler) (*Servers, error) {
	s := &Servers{
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
		},
	}

	if tlsAddr != "" {
		cert, err := generateSelfSignedCert()
		if err != nil {
			return nil, err
		}
		s.https = &http.Server{
			Addr:              tlsAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	}
	return s, nil
}

// Run blocks until ctx is cancelled or a listener fails, then shuts both
// servers down within 10 seconds.
func (s *Servers) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.WithField("addr", s.http.Addr).Info("Starting HTTP server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.https != nil {
		go func() {
			s.logger.WithField("addr", s.https.Addr).Info("Starting HTTPS server")
			if err := s.https.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.logger.WithError(runErr).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("HTTP server shutdown error")
	}
	if s.https != nil {
		if err := s.https.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Error("HTTPS server shutdown error")
		}
	}
	return runErr
}
