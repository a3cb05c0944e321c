package callback

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"socialprobe/internal/background"
	"socialprobe/internal/logging"
	"socialprobe/internal/pipeline"
	"socialprobe/internal/provider"
	"socialprobe/internal/testutil"
	"socialprobe/pkg/models"
)

// fakeCallbackServer answers every method, failing the first failFirst calls
type fakeCallbackServer struct {
	mu        sync.Mutex
	calls     int
	methods   []string
	received  []*structpb.Struct
	failFirst int
	failCode  codes.Code
}

func (f *fakeCallbackServer) handle(_ interface{}, stream grpc.ServerStream) error {
	method, _ := grpc.MethodFromServerStream(stream)
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls++
	f.methods = append(f.methods, method)
	f.received = append(f.received, in)
	fail := f.calls <= f.failFirst
	f.mu.Unlock()

	if fail {
		return status.Error(f.failCode, "try again")
	}
	out, _ := structpb.NewStruct(map[string]interface{}{"msg": "ok"})
	return stream.SendMsg(out)
}

func newTestClient(t *testing.T, fake *fakeCallbackServer, maxRetries int) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(grpc.UnknownServiceHandler(fake.handle))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := NewClient(&ClientConfig{ServerAddress: "localhost", MaxRetries: maxRetries, Timeout: time.Second},
		logging.NewNopLogger(),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	testutil.AssertNoError(t, err, "NewClient")
	client.backoff = time.Millisecond
	t.Cleanup(func() { client.Close() })
	return client
}

func successResult() *background.TaskResult {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	took := 1500 * time.Millisecond
	return &background.TaskResult{
		ProcessID:      "proc-1",
		Type:           background.TaskTypeAnalyze,
		Status:         background.TaskStatusSuccess,
		CreatedAt:      completed.Add(-took),
		CompletedAt:    &completed,
		ProcessingTime: &took,
		Data: &background.AnalyzeTaskData{
			Account: &models.AccountData{
				Username:  "nasa",
				Followers: 1000,
				Provider:  "apify-profile",
				RawData:   map[string]interface{}{"secret": "raw"},
			},
		},
		Metadata: map[string]interface{}{"handle": "nasa"},
	}
}

func TestNotifySendsTask(t *testing.T) {
	fake := &fakeCallbackServer{}
	client := newTestClient(t, fake, 0)

	err := client.Notify(context.Background(), successResult())
	testutil.AssertNoError(t, err, "Notify")
	testutil.AssertEqual(t, fake.calls, 1, "calls")
	testutil.AssertEqual(t, fake.methods[0], AnalyzeCallbackMethod, "method")

	got := fake.received[0].AsMap()
	testutil.AssertEqual(t, got["processId"], "proc-1", "processId")
	testutil.AssertEqual(t, got["status"], "SUCCESS", "status")
	testutil.AssertEqual(t, got["processingTime"], "1.5s", "processingTime")

	account := got["data"].(map[string]interface{})["account"].(map[string]interface{})
	testutil.AssertEqual(t, account["username"], "nasa", "username")
	_, hasRaw := account["rawData"]
	testutil.AssertFalse(t, hasRaw, "raw provider data is not forwarded")
}

func TestNotifyRetries(t *testing.T) {
	tests := []struct {
		name      string
		failFirst int
		code      codes.Code
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{"recovers after unavailable", 2, codes.Unavailable, 3, 3, false},
		{"gives up after retries", 5, codes.Unavailable, 1, 2, true},
		{"invalid argument is final", 1, codes.InvalidArgument, 3, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCallbackServer{failFirst: tt.failFirst, failCode: tt.code}
			client := newTestClient(t, fake, tt.retries)

			err := client.Notify(context.Background(), successResult())
			testutil.AssertEqual(t, err != nil, tt.wantErr, "error returned")
			testutil.AssertEqual(t, fake.calls, tt.wantCalls, "calls")
		})
	}
}

func TestConvertFailedTask(t *testing.T) {
	result := successResult()
	result.Status = background.TaskStatusFailure
	result.Error = "all providers failed after 1 attempts"
	result.ErrorClass = "provider_unavailable"
	result.Data.Attempts = []pipeline.Attempt{{Provider: "apify-profile", Reason: provider.ReasonQuotaExhausted}}

	req, err := convertToCallbackRequest(result)
	testutil.AssertNoError(t, err, "convert")

	got := req.AsMap()
	testutil.AssertEqual(t, got["errorClass"], "provider_unavailable", "errorClass")
	data := got["data"].(map[string]interface{})
	_, hasAccount := data["account"]
	testutil.AssertFalse(t, hasAccount, "failed task carries no account")
	attempts := data["attempts"].([]interface{})
	testutil.AssertEqual(t, len(attempts), 1, "attempts")
	testutil.AssertEqual(t, attempts[0].(map[string]interface{})["reason"], "quota_exhausted", "reason")
}

func TestConnectionParams(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"localhost", "localhost:9090"},
		{"127.0.0.1:7000", "127.0.0.1:7000"},
		{"callbacks.example.com", "callbacks.example.com:443"},
	}
	for _, tt := range tests {
		got, _ := determineConnectionParams(tt.addr, logging.NewNopLogger())
		testutil.AssertEqual(t, got, tt.want, tt.addr)
	}
}
