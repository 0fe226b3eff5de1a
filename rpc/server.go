package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
)

// Server serves DataStoreService procedures against a Registry.
type Server struct {
	registry *datastore.Registry
}

// NewServer creates a Server for reg.
func NewServer(reg *datastore.Registry) *Server {
	return &Server{registry: reg}
}

// NewHandler builds an http.Handler serving every procedure of s and
// returns the path prefix it should be mounted on.
func NewHandler(s *Server, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetProcedure, connect.NewUnaryHandler(GetProcedure, s.Get, opts...))
	mux.Handle(SetProcedure, connect.NewUnaryHandler(SetProcedure, s.Set, opts...))
	mux.Handle(DeleteProcedure, connect.NewUnaryHandler(DeleteProcedure, s.Delete, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, s.Clear, opts...))
	return "/" + ServiceName + "/", mux
}

// Get reads a value. Read outcomes, including Failure, are reported in the
// status field; only request problems become errors.
func (s *Server) Get(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	h, key, err := s.target(req.Msg, true)
	if err != nil {
		return nil, err
	}

	var opts []datastore.ReadOption
	if v, ok := intField(req.Msg, FieldVersion); ok {
		opts = append(opts, datastore.WithVersion(v))
	}

	r, err := datastore.GetSync(ctx, h, key, codec.Bytes{}, opts...)
	if err != nil {
		return nil, connectError(err)
	}
	if r.Status == datastore.StatusFailure && errors.Is(r.Err, datastore.ErrHandlerClosed) {
		return nil, connectError(r.Err)
	}

	fields := map[string]any{FieldStatus: r.Status.String()}
	if r.Status == datastore.StatusSuccess {
		fields[FieldVersion] = r.Content.Version
		fields[FieldLastUpdateMs] = r.Content.LastUpdateMs
		encodePayload(fields, FieldData, r.Content.Data)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// Set stores a value.
func (s *Server) Set(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	h, key, err := s.target(req.Msg, true)
	if err != nil {
		return nil, err
	}

	data, err := decodePayload(req.Msg, FieldValue)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	version, _ := intField(req.Msg, FieldVersion)

	if err := datastore.SetSync(ctx, h, key, data, version, codec.Bytes{}); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Delete removes a value.
func (s *Server) Delete(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	h, key, err := s.target(req.Msg, true)
	if err != nil {
		return nil, err
	}

	if err := datastore.DeleteSync(ctx, h, key); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Clear removes every value of a feature.
func (s *Server) Clear(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	h, _, err := s.target(req.Msg, false)
	if err != nil {
		return nil, err
	}

	if err := datastore.ClearSync(ctx, h); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *Server) target(msg *structpb.Struct, needKey bool) (datastore.Handler, string, error) {
	feature := stringField(msg, FieldFeature)
	if feature == "" {
		return nil, "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", FieldFeature))
	}

	key := stringField(msg, FieldKey)
	if needKey && datastore.IsKeyInvalid(key) {
		return nil, "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %q", datastore.ErrInvalidKey, key))
	}

	h, err := s.registry.Handler(feature)
	if err != nil {
		return nil, "", connectError(err)
	}
	return h, key, nil
}

func connectError(err error) error {
	switch {
	case errors.Is(err, datastore.ErrInvalidKey),
		errors.Is(err, datastore.ErrInvalidFeature):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, datastore.ErrHandlerClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
