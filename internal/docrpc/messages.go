package docrpc

import (
	"fmt"

	"github.com/dmitrijs2005/phototimeline/internal/common"
	"github.com/dmitrijs2005/phototimeline/internal/remote"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	keyCollection = "collection"
	keyID         = "id"
	keyField      = "field"
	keyValue      = "value"
	keyFields     = "fields"
	keyOps        = "ops"
	keyKind       = "kind"
	keyDocuments  = "documents"
	keyStatus     = "status"
)

// StatusOK is the Ping response status.
const StatusOK = "OK"

// Request is the decoded form of every request message. Methods read only
// the keys they need.
type Request struct {
	Collection string
	ID         string
	Field      string
	Value      any
	Fields     remote.Fields
	Ops        []remote.Op
}

// Response is the decoded form of every response message.
type Response struct {
	Status    string
	Documents []remote.Document
}

// EncodeRequest builds the wire message. Fields and values are normalized
// first, so timestamps travel as RFC 3339 strings.
func EncodeRequest(r Request) (*structpb.Struct, error) {
	m := map[string]any{}
	if r.Collection != "" {
		m[keyCollection] = r.Collection
	}
	if r.ID != "" {
		m[keyID] = r.ID
	}
	if r.Field != "" {
		m[keyField] = r.Field
		v, err := remote.NormalizeValue(r.Value)
		if err != nil {
			return nil, err
		}
		m[keyValue] = v
	}
	if r.Fields != nil {
		f, err := remote.Normalize(r.Fields)
		if err != nil {
			return nil, err
		}
		m[keyFields] = map[string]any(f)
	}
	if len(r.Ops) > 0 {
		ops := make([]any, 0, len(r.Ops))
		for _, op := range r.Ops {
			o := map[string]any{keyKind: string(op.Kind), keyCollection: op.Collection, keyID: op.ID}
			if op.Kind == remote.OpSet {
				f, err := remote.Normalize(op.Fields)
				if err != nil {
					return nil, err
				}
				o[keyFields] = map[string]any(f)
			}
			ops = append(ops, o)
		}
		m[keyOps] = ops
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	return s, nil
}

// DecodeRequest is the inverse of EncodeRequest.
func DecodeRequest(s *structpb.Struct) (Request, error) {
	m := s.AsMap()
	r := Request{
		Collection: str(m, keyCollection),
		ID:         str(m, keyID),
		Field:      str(m, keyField),
		Value:      m[keyValue],
	}
	if f, ok := m[keyFields].(map[string]any); ok {
		r.Fields = f
	}
	if raw, ok := m[keyOps]; ok {
		list, ok := raw.([]any)
		if !ok {
			return Request{}, fmt.Errorf("%w: ops must be a list", common.ErrBadRequest)
		}
		for i, item := range list {
			o, ok := item.(map[string]any)
			if !ok {
				return Request{}, fmt.Errorf("%w: op %d is not an object", common.ErrBadRequest, i)
			}
			op := remote.Op{Kind: remote.OpKind(str(o, keyKind)), Collection: str(o, keyCollection), ID: str(o, keyID)}
			if f, ok := o[keyFields].(map[string]any); ok {
				op.Fields = f
			}
			r.Ops = append(r.Ops, op)
		}
	}
	return r, nil
}

func EncodeResponse(r Response) (*structpb.Struct, error) {
	m := map[string]any{}
	if r.Status != "" {
		m[keyStatus] = r.Status
	}
	if r.Documents != nil {
		docs := make([]any, 0, len(r.Documents))
		for _, d := range r.Documents {
			docs = append(docs, map[string]any{keyID: d.ID, keyFields: map[string]any(d.Fields)})
		}
		m[keyDocuments] = docs
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return s, nil
}

func DecodeResponse(s *structpb.Struct) (Response, error) {
	m := s.AsMap()
	r := Response{Status: str(m, keyStatus)}
	raw, ok := m[keyDocuments]
	if !ok {
		return r, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return Response{}, fmt.Errorf("%w: documents must be a list", common.ErrInternal)
	}
	r.Documents = make([]remote.Document, 0, len(list))
	for _, item := range list {
		d, ok := item.(map[string]any)
		if !ok {
			return Response{}, fmt.Errorf("%w: malformed document", common.ErrInternal)
		}
		fields, _ := d[keyFields].(map[string]any)
		if fields == nil {
			fields = map[string]any{}
		}
		r.Documents = append(r.Documents, remote.Document{ID: str(d, keyID), Fields: fields})
	}
	return r, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
