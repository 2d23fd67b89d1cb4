package flair

import (
	"bytes"
	"encoding/json"
	"fmt"

	"flairbridge/internal/model"
)

// document is a JSON:API top-level document.
type document struct {
	Data  json.RawMessage `json:"data"`
	Links *links          `json:"links,omitempty"`
}

type links struct {
	Next string `json:"next,omitempty"`
}

// resourceObject is a JSON:API resource as returned by Flair.
type resourceObject struct {
	Type          string                        `json:"type"`
	ID            string                        `json:"id"`
	Attributes    map[string]interface{}        `json:"attributes"`
	Relationships map[string]relationshipObject `json:"relationships,omitempty"`
}

// relationshipObject holds linkage that may be null, one object or a list.
type relationshipObject struct {
	Data json.RawMessage `json:"data"`
}

// updateDocument is the body of a PATCH request.
type updateDocument struct {
	Data updateData `json:"data"`
}

type updateData struct {
	Type          string                 `json:"type"`
	ID            string                 `json:"id"`
	Attributes    map[string]interface{} `json:"attributes"`
	Relationships map[string]interface{} `json:"relationships"`
}

func (r resourceObject) toModel() *model.Resource {
	out := model.NewResource(r.Type, r.ID)
	if r.Attributes != nil {
		out.Attributes = r.Attributes
	}
	for name, rel := range r.Relationships {
		refs, err := rel.refs()
		if err != nil {
			continue
		}
		out.Relationships[name] = model.Relationship{Data: refs}
	}
	return out
}

func (r relationshipObject) refs() ([]model.Ref, error) {
	raw := bytes.TrimSpace(r.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var refs []model.Ref
		if err := json.Unmarshal(raw, &refs); err != nil {
			return nil, fmt.Errorf("failed to decode relationship list: %w", err)
		}
		return refs, nil
	}
	var ref model.Ref
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("failed to decode relationship: %w", err)
	}
	return []model.Ref{ref}, nil
}

func decodeList(doc *document) ([]resourceObject, error) {
	raw := bytes.TrimSpace(doc.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '[' {
		var single resourceObject
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("failed to decode resource: %w", err)
		}
		return []resourceObject{single}, nil
	}
	var list []resourceObject
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode resource list: %w", err)
	}
	return list, nil
}

func decodeOne(doc *document) (*resourceObject, error) {
	list, err := decodeList(doc)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// APIError is a non-2xx response from the Flair API.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flair API %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}
