package tlsserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rsr-chat/rsrserver/pkg/netdiag"
)

// selfSignedCertFiles writes a throwaway self-signed cert/key pair to temp
// files, the way generate_cert.go mints one for a local server under test.
func selfSignedCertFiles(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{Organization: []string{"rsrserver test"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	certFile, err := os.CreateTemp(t.TempDir(), "cert-*.pem")
	if err != nil {
		t.Fatalf("create cert temp file: %v", err)
	}
	pem.Encode(certFile, &pem.Block{Type: "CERTIFICATE", Bytes: der})
	certFile.Close()

	keyFile, err := os.CreateTemp(t.TempDir(), "key-*.pem")
	if err != nil {
		t.Fatalf("create key temp file: %v", err)
	}
	pem.Encode(keyFile, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	keyFile.Close()

	return certFile.Name(), keyFile.Name()
}

// TestServeOneRegistersFdBeforeHandshakeWraps dials a real TLS connection
// against a Server with NetDiag set, and asserts that by the time Handle
// runs (after the handshake has already wrapped the conn in *tls.Conn), the
// fd was already registered under the sessionID handed to Handle. That
// registration can only have succeeded if it happened against the raw
// pre-handshake net.Conn: netfd.GetFdFromConn cannot unwrap a *tls.Conn.
func TestServeOneRegistersFdBeforeHandshakeWraps(t *testing.T) {
	certPath, keyPath := selfSignedCertFiles(t)
	diag := netdiag.NewTable()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)

	srv, err := New(Config{
		Addr:     "127.0.0.1:0",
		CertPath: certPath,
		KeyPath:  keyPath,
		NetDiag:  diag,
	}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	registered := make(chan bool, 1)
	handler := HandlerFunc(func(conn net.Conn, sessionID string) {
		_, _, ok := diag.Lookup(sessionID)
		registered <- ok
		conn.Close()
	})
	go srv.Serve(handler)

	conn, err := tls.Dial("tcp", srv.listener.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case ok := <-registered:
		if !ok {
			t.Fatal("sessionID handed to Handle has no fd registered in NetDiag")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler to run")
	}
}

// TestServeOneSkipsHandlerOnHandshakeFailure confirms a client that connects
// and disconnects before completing the handshake never reaches Handle. The
// NetDiag entry itself is not inspected: its session id never leaves
// serveOne on this path.
func TestServeOneSkipsHandlerOnHandshakeFailure(t *testing.T) {
	certPath, keyPath := selfSignedCertFiles(t)
	diag := netdiag.NewTable()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv, err := New(Config{
		Addr:     "127.0.0.1:0",
		CertPath: certPath,
		KeyPath:  keyPath,
		NetDiag:  diag,
	}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()

	handlerCalled := make(chan struct{}, 1)
	handler := HandlerFunc(func(conn net.Conn, sessionID string) {
		handlerCalled <- struct{}{}
		conn.Close()
	})
	go srv.Serve(handler)

	conn, err := net.Dial("tcp", srv.listener.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	// Send garbage instead of a TLS ClientHello, then close: the handshake
	// fails before Handle ever runs.
	conn.Write([]byte("not a tls handshake"))
	conn.Close()

	select {
	case <-handlerCalled:
		t.Fatal("Handle should not run when the handshake fails")
	case <-time.After(300 * time.Millisecond):
	}
}
