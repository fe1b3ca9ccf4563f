package http

import (
	"context"
	"encoding/json"
	"net"
	gohttp "net/http"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/simpla/backend/pkg/account"
	"github.com/simpla/backend/pkg/api"
	"github.com/simpla/backend/pkg/auth/token"
	"github.com/simpla/backend/pkg/password"
	"github.com/simpla/backend/pkg/storage/memory"
)

// slowStore delays health checks so shutdown can be observed mid-request.
type slowStore struct {
	*memory.Store
	delay time.Duration
}

func (s slowStore) HealthCheck(ctx context.Context) error {
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newTestAdapter(t *testing.T, store slowStore) *Adapter {
	t.Helper()

	secret, err := token.NewSecret([]byte("server-test-secret-0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := token.New(token.Config{Secret: secret})
	if err != nil {
		t.Fatal(err)
	}
	hasher, err := password.NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	accounts := account.New(account.Config{Users: store, Passwords: hasher, Tokens: tokens})
	return NewAdapter(store, accounts, token.NewAuthenticator(tokens), DefaultConfig())
}

// startServer serves srv on a loopback listener until the returned cancel
// is called. done receives Serve's result.
func startServer(t *testing.T, srv *Server) (addr string, cancel context.CancelFunc, done <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- srv.Serve(ctx, ln) }()
	return ln.Addr().String(), cancel, ch
}

func TestServerStartsAndAcceptsRequests(t *testing.T) {
	srv := NewServer(newTestAdapter(t, slowStore{Store: memory.New()}))
	addr, cancel, done := startServer(t, srv)

	resp, err := gohttp.Get("http://" + addr + "/api/auth/me")
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != gohttp.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, gohttp.StatusOK)
	}

	var got api.Principal
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Authenticated {
		t.Errorf("principal = %+v, want anonymous", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v, want nil", err)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	store := slowStore{Store: memory.New(), delay: 200 * time.Millisecond}
	srv := NewServer(newTestAdapter(t, store), WithShutdownTimeout(5*time.Second))
	addr, cancel, done := startServer(t, srv)

	responseCh := make(chan int, 1)
	go func() {
		resp, err := gohttp.Get("http://" + addr + "/healthz")
		if err != nil {
			responseCh <- 0
			return
		}
		defer resp.Body.Close()
		responseCh <- resp.StatusCode
	}()

	// Let the slow request reach the handler before draining.
	time.Sleep(50 * time.Millisecond)
	cancel()

	if status := <-responseCh; status != gohttp.StatusOK {
		t.Errorf("slow request status = %d, want %d", status, gohttp.StatusOK)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve returned %v, want nil", err)
	}
}

func TestServerShutdownTimeout(t *testing.T) {
	store := slowStore{Store: memory.New(), delay: 2 * time.Second}
	srv := NewServer(newTestAdapter(t, store), WithShutdownTimeout(50*time.Millisecond))
	addr, cancel, done := startServer(t, srv)

	go func() {
		resp, err := gohttp.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
		}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Serve returned nil, want a shutdown deadline error")
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after the shutdown timeout")
	}
}

func TestServerRunListenError(t *testing.T) {
	srv := NewServer(newTestAdapter(t, slowStore{Store: memory.New()}), WithAddr("127.0.0.1:-1"))
	if err := srv.Run(context.Background()); err == nil {
		t.Error("Run with an invalid address returned nil")
	}
}

func TestServerFunctionalOptions(t *testing.T) {
	srv := NewServer(newTestAdapter(t, slowStore{Store: memory.New()}),
		WithAddr(":9999"),
		WithTimeouts(5*time.Second, 0),
		WithShutdownTimeout(10*time.Second),
	)

	if srv.config.Addr != ":9999" {
		t.Errorf("addr = %q, want %q", srv.config.Addr, ":9999")
	}
	if srv.config.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %v, want %v", srv.config.ReadTimeout, 5*time.Second)
	}
	if srv.config.WriteTimeout != DefaultServerConfig().WriteTimeout {
		t.Errorf("write timeout = %v, want default", srv.config.WriteTimeout)
	}
	if srv.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, 10*time.Second)
	}
	if srv.httpServer.ReadHeaderTimeout == 0 {
		t.Error("expected ReadHeaderTimeout to be set")
	}
}
