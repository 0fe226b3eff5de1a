package rpc

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/datastore/datastore"
)

// Client calls a remote DataStoreService.
type Client struct {
	get    *connect.Client[structpb.Struct, structpb.Struct]
	set    *connect.Client[structpb.Struct, emptypb.Empty]
	delete *connect.Client[structpb.Struct, emptypb.Empty]
	clear  *connect.Client[structpb.Struct, emptypb.Empty]
}

// NewClient creates a Client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		get:    connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetProcedure, opts...),
		set:    connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+SetProcedure, opts...),
		delete: connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+DeleteProcedure, opts...),
		clear:  connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, baseURL+ClearProcedure, opts...),
	}
}

// Get reads key from feature. version, when non-nil, is required to match.
func (c *Client) Get(ctx context.Context, feature, key string, version *int) (datastore.Result[[]byte], error) {
	fields := map[string]any{FieldFeature: feature, FieldKey: key}
	if version != nil {
		fields[FieldVersion] = *version
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return datastore.Result[[]byte]{}, err
	}

	res, err := c.get.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return datastore.Result[[]byte]{}, err
	}

	msg := res.Msg
	switch status := stringField(msg, FieldStatus); status {
	case datastore.StatusSuccess.String():
		data, err := decodePayload(msg, FieldData)
		if err != nil {
			return datastore.Result[[]byte]{}, err
		}
		v, _ := intField(msg, FieldVersion)
		return datastore.Result[[]byte]{
			Status: datastore.StatusSuccess,
			Content: datastore.Content[[]byte]{
				Version:      v,
				LastUpdateMs: int64(msg.GetFields()[FieldLastUpdateMs].GetNumberValue()),
				Data:         data,
			},
		}, nil
	case datastore.StatusNoData.String():
		return datastore.Result[[]byte]{Status: datastore.StatusNoData}, nil
	case datastore.StatusFailure.String():
		return datastore.Result[[]byte]{Status: datastore.StatusFailure, Err: datastore.ErrReadFailed}, nil
	default:
		return datastore.Result[[]byte]{}, fmt.Errorf("unexpected status %q", status)
	}
}

// Set stores data under key in feature.
func (c *Client) Set(ctx context.Context, feature, key string, data []byte, version int) error {
	fields := map[string]any{FieldFeature: feature, FieldKey: key, FieldVersion: version}
	encodePayload(fields, FieldValue, data)
	return c.mutate(ctx, c.set, fields)
}

// Delete removes key from feature.
func (c *Client) Delete(ctx context.Context, feature, key string) error {
	return c.mutate(ctx, c.delete, map[string]any{FieldFeature: feature, FieldKey: key})
}

// Clear removes every value of feature.
func (c *Client) Clear(ctx context.Context, feature string) error {
	return c.mutate(ctx, c.clear, map[string]any{FieldFeature: feature})
}

func (c *Client) mutate(ctx context.Context, call *connect.Client[structpb.Struct, emptypb.Empty], fields map[string]any) error {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	_, err = call.CallUnary(ctx, connect.NewRequest(req))
	return err
}
