package audit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/malidaftari/assistant/pkg/logger"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "audit"
)

// Config holds NATS connection configuration for the audit stream.
type Config struct {
	URL      string
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// NatsRecorder publishes audit entries to a JetStream stream. Entries that
// fail to publish fall back to the structured log so they are never lost
// silently.
type NatsRecorder struct {
	conn     *nats.Conn
	js       jetstream.JetStream
	logger   *logger.Logger
	fallback *LogRecorder
}

// Connect establishes a NATS connection and ensures the audit stream exists.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*NatsRecorder, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}

	// Add TLS configuration if certificates are provided
	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		tlsConfig, err := createTLSConfig(cfg.CAFile, cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}

	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	r := &NatsRecorder{
		conn:     nc,
		js:       js,
		logger:   log,
		fallback: NewLogRecorder(log),
	}

	if err := r.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	return r, nil
}

func (r *NatsRecorder) ensureStream(ctx context.Context) error {
	_, err := r.js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	_, err = r.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Scope bindings and access denials",
	})
	if err != nil {
		return fmt.Errorf("failed to create audit stream: %w", err)
	}

	return nil
}

// Subject returns the subject for an entry.
func Subject(e *Entry) string {
	scope := e.ScopeID
	if scope == "" {
		scope = "unscoped"
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.Kind, scope)
}

// Record publishes the entry to the audit stream.
func (r *NatsRecorder) Record(ctx context.Context, e *Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		r.fallback.Record(ctx, e)
		return
	}

	if _, err := r.js.Publish(ctx, Subject(e), data); err != nil {
		r.logger.Warn("audit publish failed, falling back to log", zap.Error(err))
		r.fallback.Record(ctx, e)
	}
}

// IsConnected reports whether the broker connection is up.
func (r *NatsRecorder) IsConnected() bool {
	return r.conn != nil && r.conn.IsConnected()
}

// Close closes the NATS connection.
func (r *NatsRecorder) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

func createTLSConfig(caFile, certFile, keyFile string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert: %w", err)
	}

	return &tls.Config{
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
