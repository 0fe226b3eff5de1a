// Package rpc exposes a datastore Registry over Connect so local tooling
// can read and modify feature stores of a running process.
//
// Messages use protobuf well-known types: requests and Get responses are
// google.protobuf.Struct, mutations answer google.protobuf.Empty. Payloads
// travel as UTF-8 strings, or base64 with "encoding": "base64" when the
// stored bytes are not valid UTF-8.
package rpc

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified service name.
const ServiceName = "tau.datastore.v1.DataStoreService"

// Procedure paths.
const (
	GetProcedure    = "/" + ServiceName + "/Get"
	SetProcedure    = "/" + ServiceName + "/Set"
	DeleteProcedure = "/" + ServiceName + "/Delete"
	ClearProcedure  = "/" + ServiceName + "/Clear"
)

// Message field names.
const (
	FieldFeature      = "feature"
	FieldKey          = "key"
	FieldVersion      = "version"
	FieldValue        = "value"
	FieldData         = "data"
	FieldEncoding     = "encoding"
	FieldStatus       = "status"
	FieldLastUpdateMs = "last_update_ms"

	EncodingBase64 = "base64"
)

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func intField(s *structpb.Struct, name string) (int, bool) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, false
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, false
	}
	return int(v.GetNumberValue()), true
}

// encodePayload places data into fields under key, base64 encoding it when
// it is not valid UTF-8.
func encodePayload(fields map[string]any, key string, data []byte) {
	if utf8.Valid(data) {
		fields[key] = string(data)
		return
	}
	fields[key] = base64.StdEncoding.EncodeToString(data)
	fields[FieldEncoding] = EncodingBase64
}

func decodePayload(s *structpb.Struct, key string) ([]byte, error) {
	raw := stringField(s, key)
	switch enc := stringField(s, FieldEncoding); enc {
	case "":
		return []byte(raw), nil
	case EncodingBase64:
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode base64 %s: %w", key, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
}
