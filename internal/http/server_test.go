package httpserver

import (
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Subject.Organization[0] != "get2put" {
		t.Fatalf("subject: %v", leaf.Subject)
	}
	if !leaf.NotAfter.After(time.Now().Add(300 * 24 * time.Hour)) {
		t.Fatalf("certificate expires too soon: %v", leaf.NotAfter)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := New(logger, "127.0.0.1:0", "", http.NotFoundHandler())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not shut down")
	}
}

func TestRunReportsListenError(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := New(logger, "bad-address", "", http.NotFoundHandler())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected listen error")
	}
}
