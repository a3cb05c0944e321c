package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"socialprobe/internal/analysis"
	"socialprobe/internal/background"
	"socialprobe/internal/grpc/interceptors"
	"socialprobe/internal/pipeline"
	"socialprobe/pkg/models"
	"socialprobe/pkg/utils"
)

// Analyzer runs one profile analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error)
}

// Analyze implements ProfileService.Analyze
func (s *Server) Analyze(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := analyzeRequest(in)
	if err != nil {
		return nil, err
	}

	outcome, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		s.logger.Warn("gRPC profile analysis failed", map[string]interface{}{
			"request_id": interceptors.RequestIDFromContext(ctx),
			"handle":     req.Handle,
			"error":      err.Error(),
		})
		return nil, analysisStatus(err)
	}

	resp := models.AnalyzeResponse{
		Success:        true,
		Account:        outcome.Account,
		Cached:         outcome.Cached,
		ProcessingTime: outcome.Duration,
		RequestID:      interceptors.RequestIDFromContext(ctx),
	}
	if len(outcome.Attempts) > 0 {
		resp.Attempts = outcome.Attempts
	}
	return toStruct(resp)
}

// AnalyzeAsync implements ProfileService.AnalyzeAsync
func (s *Server) AnalyzeAsync(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.taskManager == nil {
		return nil, status.Error(codes.Unavailable, "background tasks are disabled")
	}

	req, err := analyzeRequest(in)
	if err != nil {
		return nil, err
	}
	if !utils.IsValidHandle(utils.NormalizeHandle(req.Handle)) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid handle %q", req.Handle)
	}

	processID := utils.GenerateRequestID()
	if err := s.taskManager.SubmitAnalyzeTask(ctx, processID, req); err != nil {
		if errors.Is(err, background.ErrQueueFull) {
			return nil, status.Error(codes.ResourceExhausted, err.Error())
		}
		return nil, status.Errorf(codes.Unavailable, "failed to submit analysis task: %v", err)
	}

	return toStruct(models.CreateAsyncAnalyzeResponse(processID))
}

// GetTask implements ProfileService.GetTask
func (s *Server) GetTask(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.taskManager == nil {
		return nil, status.Error(codes.Unavailable, "background tasks are disabled")
	}

	processID := stringField(in, "processId")
	if processID == "" {
		processID = stringField(in, "process_id")
	}
	if processID == "" {
		return nil, status.Error(codes.InvalidArgument, "processId is required")
	}

	result, err := s.taskManager.GetTaskResult(ctx, processID)
	if err != nil {
		if errors.Is(err, background.ErrTaskNotFound) {
			return nil, status.Errorf(codes.NotFound, "no task with process id %s", processID)
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return toStruct(result)
}

// analyzeRequest reads handle, providers and skip_cache from in
func analyzeRequest(in *structpb.Struct) (analysis.Request, error) {
	req := analysis.Request{Handle: stringField(in, "handle")}
	if req.Handle == "" {
		return req, status.Error(codes.InvalidArgument, "handle is required")
	}

	fields := in.GetFields()
	if v, ok := fields["providers"]; ok {
		list := v.GetListValue()
		if list == nil {
			return req, status.Error(codes.InvalidArgument, "providers must be a list of strings")
		}
		for _, item := range list.GetValues() {
			id, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok || id.StringValue == "" {
				return req, status.Error(codes.InvalidArgument, "providers must be a list of strings")
			}
			req.Providers = append(req.Providers, id.StringValue)
		}
	}
	if v, ok := fields["skip_cache"]; ok {
		req.SkipCache = v.GetBoolValue()
	}
	return req, nil
}

func stringField(in *structpb.Struct, name string) string {
	if v, ok := in.GetFields()[name]; ok {
		return v.GetStringValue()
	}
	return ""
}

// analysisStatus maps a failed analysis to a status. Chain failures carry the
// provider attempts as a Struct detail.
func analysisStatus(err error) error {
	code := codes.Unavailable
	switch {
	case pipeline.IsBadInput(err):
		code = codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}

	st := status.New(code, err.Error())

	var failed *pipeline.AllProvidersFailedError
	if errors.As(err, &failed) && len(failed.Attempts) > 0 {
		detail, convErr := toStruct(map[string]interface{}{"attempts": failed.Attempts})
		if convErr == nil {
			if withDetails, detailErr := st.WithDetails(detail); detailErr == nil {
				st = withDetails
			}
		}
	}
	return st.Err()
}

// toStruct converts v to a Struct through its JSON form
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}

	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}
