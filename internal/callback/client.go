package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"socialprobe/internal/background"
	"socialprobe/internal/config"
	"socialprobe/internal/logging"
)

// AnalyzeCallbackMethod is the full method invoked for each finished analysis task
const AnalyzeCallbackMethod = "/socialprobe.v1.AnalyzeCallbackService/AnalyzeCallback"

// Client pushes finished background tasks to a callback server over gRPC
type Client struct {
	conn       *grpc.ClientConn
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     logging.Logger
}

// ClientConfig holds configuration for the callback client
type ClientConfig struct {
	ServerAddress string
	Timeout       time.Duration
	MaxRetries    int
}

// ConfigFrom reads the callback section of the application config
func ConfigFrom(cfg *config.Config) *ClientConfig {
	return &ClientConfig{
		ServerAddress: cfg.Callback.ServerAddress,
		Timeout:       cfg.Callback.Timeout,
		MaxRetries:    cfg.Callback.MaxRetries,
	}
}

// NewClient creates a new callback gRPC client
func NewClient(cfg *ClientConfig, logger logging.Logger, opts ...grpc.DialOption) (*Client, error) {
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithField("component", "callback")

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	serverAddr, creds := determineConnectionParams(cfg.ServerAddress, logger)

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		// prefer IPv4
		grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
			return (&net.Dialer{Timeout: timeout}).DialContext(ctx, "tcp4", addr)
		}),
	}
	dialOpts = append(dialOpts, opts...)

	conn, err := grpc.NewClient(serverAddr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", serverAddr, err)
	}

	return &Client{
		conn:       conn,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    time.Second,
		logger:     logger,
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Notify sends one finished task. Unavailable and deadline errors are retried.
func (c *Client) Notify(ctx context.Context, result *background.TaskResult) error {
	req, err := convertToCallbackRequest(result)
	if err != nil {
		return fmt.Errorf("failed to build callback request: %w", err)
	}

	fields := map[string]interface{}{
		"process_id": result.ProcessID,
		"status":     string(result.Status),
		"target":     c.conn.Target(),
	}
	c.logger.Info("Sending analyze callback", fields)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp := new(structpb.Struct)
		lastErr = c.conn.Invoke(callCtx, AnalyzeCallbackMethod, req, resp)
		cancel()

		if lastErr == nil {
			if msg := resp.GetFields()["msg"].GetStringValue(); msg != "" {
				fields["response_msg"] = msg
			}
			c.logger.Info("Analyze callback sent successfully", fields)
			return nil
		}
		if !retryable(lastErr) {
			break
		}
	}

	c.logger.Error("Failed to send analyze callback", map[string]interface{}{
		"process_id": result.ProcessID,
		"error":      lastErr.Error(),
	})
	return fmt.Errorf("failed to send callback: %w", lastErr)
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// convertToCallbackRequest flattens a task into the callback payload. Failed
// tasks carry their provider attempts but never an account.
func convertToCallbackRequest(result *background.TaskResult) (*structpb.Struct, error) {
	payload := map[string]interface{}{
		"processId": result.ProcessID,
		"status":    string(result.Status),
		"operation": string(result.Type),
		"timestamp": result.CreatedAt.Format(time.RFC3339Nano),
	}
	if result.CompletedAt != nil {
		payload["timestamp"] = result.CompletedAt.Format(time.RFC3339Nano)
	}
	if result.ProcessingTime != nil {
		payload["processingTime"] = result.ProcessingTime.String()
	}
	if result.Error != "" {
		payload["error"] = result.Error
		payload["errorClass"] = result.ErrorClass
	}

	if result.Data != nil {
		data := map[string]interface{}{"cached": result.Data.Cached}
		if result.Data.Account != nil && result.Status == background.TaskStatusSuccess {
			account := *result.Data.Account
			account.RawData = nil
			data["account"] = account
		}
		if len(result.Data.Attempts) > 0 {
			data["attempts"] = result.Data.Attempts
		}
		payload["data"] = data
	}
	if len(result.Metadata) > 0 {
		payload["metadata"] = result.Metadata
	}

	return toStruct(payload)
}

// toStruct converts through JSON so nested types honor their json tags
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// determineConnectionParams picks credentials and a default port for the address
func determineConnectionParams(serverAddress string, logger logging.Logger) (string, credentials.TransportCredentials) {
	if isLocalhost(serverAddress) {
		addr := ensurePort(serverAddress, "9090")
		logger.Info("Using insecure connection for localhost", map[string]interface{}{
			"address": addr,
		})
		return addr, insecure.NewCredentials()
	}

	addr := ensurePort(serverAddress, "443")
	logger.Info("Using TLS connection", map[string]interface{}{
		"address": addr,
	})
	return addr, credentials.NewTLS(nil)
}

// isLocalhost checks if the address is localhost/127.0.0.1
func isLocalhost(addr string) bool {
	host := strings.Split(addr, ":")[0]
	return host == "localhost" || host == "127.0.0.1"
}

// ensurePort adds a default port to the address if no port is specified
func ensurePort(addr, defaultPort string) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return fmt.Sprintf("%s:%s", addr, defaultPort)
}
