// Package health exposes daemon liveness over the standard gRPC health
// protocol so doctor and external supervisors can probe a running daemon.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/murmur/internal/logging"
)

// Service is the health service name murmur reports under.
const Service = "murmur"

// Reporter holds the serving status published by Serve.
type Reporter struct {
	server *grpchealth.Server
}

// NewReporter starts NOT_SERVING.
func NewReporter() *Reporter {
	r := &Reporter{server: grpchealth.NewServer()}
	r.SetServing(false)
	return r
}

// SetServing flips the murmur and overall statuses.
func (r *Reporter) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.server.SetServingStatus(Service, status)
	r.server.SetServingStatus("", status)
}

// Follow polls probe every interval and publishes its result until ctx is
// done.
func (r *Reporter) Follow(ctx context.Context, probe func() bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := probe()
	r.SetServing(last)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if now := probe(); now != last {
				last = now
				r.SetServing(now)
			}
		}
	}
}

// Serve runs a gRPC health server on addr until ctx is done. addr is a TCP
// host:port or unix:///path.
func Serve(ctx context.Context, addr string, r *Reporter, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	lis, err := listen(addr)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, r.server)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()
	logger.Info("health endpoint listening", "component", "health", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		r.server.Shutdown()
		srv.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve health: %w", err)
	}
}

func listen(addr string) (net.Listener, error) {
	addr = strings.TrimSpace(addr)
	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		_ = os.Remove(path)
		lis, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("listen health socket %q: %w", path, err)
		}
		return lis, nil
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health %q: %w", addr, err)
	}
	return lis, nil
}

// Check dials addr, waits for the connection to become ready, and returns the
// reported status of the murmur service.
func Check(ctx context.Context, addr string, timeout time.Duration) (healthpb.HealthCheckResponse_ServingStatus, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.TrimSpace(addr)
	if !strings.HasPrefix(target, "unix://") {
		target = "passthrough:///" + target
	}
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dial health %q: %w", addr, err)
	}
	defer conn.Close()

	conn.Connect()
	if err := waitForReady(ctx, conn); err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("wait for health readiness: %w", err)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: Service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus(), nil
}

// waitForReady blocks until the connection enters Ready or fails.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
