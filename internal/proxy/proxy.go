package proxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	"github.com/firefly-engineering/netblocker/internal/errors"
)

// Dialer opens upstream connections. *firewall.Engine satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds proxy configuration
type Config struct {
	// ListenAddr is the address to listen on (e.g., "127.0.0.1:3128")
	ListenAddr string

	// Dialer opens every upstream connection
	Dialer Dialer

	// DialTimeout bounds a single upstream dial (0 = 30s)
	DialTimeout time.Duration

	// Logger for proxy operations
	Logger *slog.Logger
}

// Proxy is a forward proxy that dials through a Dialer
type Proxy struct {
	config  *Config
	forward *httputil.ReverseProxy
}

// New creates a new proxy instance
func New(cfg *Config) (*Proxy, error) {
	if cfg.Dialer == nil {
		return nil, fmt.Errorf("proxy requires a dialer")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	p := &Proxy{config: cfg}

	transport := &http.Transport{
		DialContext:           p.dial,
		ForceAttemptHTTP2:     false,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}

	p.forward = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Scheme = pr.In.URL.Scheme
			pr.Out.URL.Host = pr.In.URL.Host
			pr.Out.Host = pr.In.Host
			pr.Out.RequestURI = ""

			pr.Out.Header.Del("Proxy-Connection")
			pr.Out.Header.Del("Proxy-Authorization")
		},
		Transport:    transport,
		ErrorHandler: p.errorHandler,
	}

	return p, nil
}

func (p *Proxy) dial(ctx context.Context, network, address string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.DialTimeout)
	defer cancel()
	return p.config.Dialer.DialContext(ctx, network, address)
}

// ServeHTTP implements http.Handler
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.config.Logger.Debug("proxy request",
		"method", r.Method,
		"host", r.Host,
		"remote", r.RemoteAddr)

	if r.Method == http.MethodConnect {
		p.tunnel(w, r)
		return
	}

	if r.URL.Host == "" || (r.URL.Scheme != "http" && r.URL.Scheme != "") {
		http.Error(w, "absolute http:// URL or CONNECT required", http.StatusBadRequest)
		return
	}
	if r.URL.Scheme == "" {
		r.URL.Scheme = "http"
	}

	lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
	p.forward.ServeHTTP(lw, r)

	p.config.Logger.Debug("proxy response",
		"method", r.Method,
		"url", r.URL.String(),
		"status", lw.statusCode)
}

// tunnel serves CONNECT by dialing the target and splicing the hijacked
// client connection onto it.
func (p *Proxy) tunnel(w http.ResponseWriter, r *http.Request) {
	upstream, err := p.dial(r.Context(), "tcp", r.Host)
	if err != nil {
		p.errorHandler(w, r, err)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	client, buf, err := hj.Hijack()
	if err != nil {
		upstream.Close()
		p.config.Logger.Error("hijack failed", "error", err)
		return
	}

	if _, err := io.WriteString(client, "HTTP/1.1 200 Connection Established\r\n\r\n"); err != nil {
		client.Close()
		upstream.Close()
		return
	}

	p.config.Logger.Debug("tunnel opened", "target", r.Host, "remote", r.RemoteAddr)
	splice(client, buf.Reader, upstream)
	p.config.Logger.Debug("tunnel closed", "target", r.Host)
}

// splice copies in both directions until either side finishes, then
// closes both. Bytes the client sent before the hijack are flushed first.
func splice(client net.Conn, buffered *bufio.Reader, upstream net.Conn) {
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			client.Close()
			upstream.Close()
		})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer closeBoth()
		io.Copy(upstream, io.MultiReader(buffered, client))
	}()
	go func() {
		defer wg.Done()
		defer closeBoth()
		io.Copy(client, upstream)
	}()
	wg.Wait()
}

func (p *Proxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if errors.IsBlocked(err) {
		p.config.Logger.Info("proxy request blocked", "host", r.Host, "error", err)
		http.Error(w, "blocked by egress policy", http.StatusForbidden)
		return
	}
	p.config.Logger.Warn("proxy error", "host", r.Host, "error", err)
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

func (lw *loggingResponseWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Server wraps the proxy with lifecycle management
type Server struct {
	proxy    *Proxy
	server   *http.Server
	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a new proxy server
func NewServer(cfg *Config) (*Server, error) {
	proxy, err := New(cfg)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           proxy,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		proxy:  proxy,
		server: server,
	}, nil
}

// Listen binds the listen address without serving yet.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start serves until Stop. It calls Listen first when needed.
func (s *Server) Start() error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.proxy.config.Logger.Info("starting proxy server", "addr", ln.Addr().String())
	err := s.server.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the proxy server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
