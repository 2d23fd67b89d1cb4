// Package testutil provides testing utilities for the Flair bridge.
// This package contains a mock Flair REST API and a harness that wires the
// real client, coordinator and entities against it.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFlairServer simulates the Flair JSON:API. PATCH requests are applied
// to the stored resources so the next poll sees them.
type MockFlairServer struct {
	server *httptest.Server

	mu          sync.Mutex
	structures  []string
	resources   map[string]*mockResource // "type/id"
	patches     []PatchCall
	patchStatus int
	fetches     int
	tokens      int
}

type mockResource struct {
	Type          string
	ID            string
	StructureID   string
	Attributes    map[string]interface{}
	Relationships map[string]interface{}
	Reading       map[string]interface{}
}

// NewMockFlairServer starts a mock server on a loopback port.
func NewMockFlairServer() *MockFlairServer {
	s := &MockFlairServer{resources: make(map[string]*mockResource)}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", s.handleToken)
	mux.HandleFunc("/api/", s.handleAPI)
	s.server = httptest.NewServer(mux)
	return s
}

// URL is the base URL to configure the client with.
func (s *MockFlairServer) URL() string {
	return s.server.URL
}

// Close stops the server.
func (s *MockFlairServer) Close() {
	s.server.Close()
}

func key(resourceType, id string) string {
	return resourceType + "/" + id
}

// AddStructure registers a structure.
func (s *MockFlairServer) AddStructure(id string, attributes map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[key("structures", id)]; !ok {
		s.structures = append(s.structures, id)
	}
	s.resources[key("structures", id)] = &mockResource{
		Type:       "structures",
		ID:         id,
		Attributes: copyMap(attributes),
	}
}

// AddResource registers a child of structureID. Relationship values are
// JSON:API linkage: nil, a {"type","id"} map or a list of them.
func (s *MockFlairServer) AddResource(structureID, resourceType, id string, attributes, relationships map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[key(resourceType, id)] = &mockResource{
		Type:          resourceType,
		ID:            id,
		StructureID:   structureID,
		Attributes:    copyMap(attributes),
		Relationships: copyMap(relationships),
	}
}

// SetReading sets the current-reading attributes of a puck or vent.
func (s *MockFlairServer) SetReading(resourceType, id string, reading map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[key(resourceType, id)]; ok {
		r.Reading = copyMap(reading)
	}
}

// SetAttribute changes a resource the way the Flair app would.
func (s *MockFlairServer) SetAttribute(resourceType, id, name string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[key(resourceType, id)]; ok {
		r.Attributes[name] = value
	}
}

// Attribute returns the server-side value of a resource attribute.
func (s *MockFlairServer) Attribute(resourceType, id, name string) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.resources[key(resourceType, id)]; ok {
		return r.Attributes[name]
	}
	return nil
}

// FailPatches makes every PATCH answer with status. Zero restores success.
func (s *MockFlairServer) FailPatches(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patchStatus = status
}

// Fetches counts GET /api/structures requests, one per poll.
func (s *MockFlairServer) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *MockFlairServer) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokens++
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"access_token":"mock-token","token_type":"bearer","expires_in":3600}`)
}

func (s *MockFlairServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer mock-token" {
		s.writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/"), "/"), "/")

	switch {
	case r.Method == http.MethodPatch && len(parts) == 2:
		s.handlePatch(w, r, parts[0], parts[1])
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "structures":
		s.handleStructures(w)
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "structures":
		s.handleChildren(w, parts[1], parts[2])
	case r.Method == http.MethodGet && len(parts) == 3 && parts[2] == "current-reading":
		s.handleReading(w, parts[0], parts[1])
	default:
		s.writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	}
}

func (s *MockFlairServer) handleStructures(w http.ResponseWriter) {
	s.mu.Lock()
	s.fetches++
	data := make([]map[string]interface{}, 0, len(s.structures))
	for _, id := range s.structures {
		data = append(data, s.resources[key("structures", id)].object())
	}
	s.mu.Unlock()

	s.writeDocument(w, data)
}

func (s *MockFlairServer) handleChildren(w http.ResponseWriter, structureID, resourceType string) {
	s.mu.Lock()
	var children []*mockResource
	for _, r := range s.resources {
		if r.Type == resourceType && r.StructureID == structureID {
			children = append(children, r)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	data := make([]map[string]interface{}, 0, len(children))
	for _, r := range children {
		data = append(data, r.object())
	}
	s.mu.Unlock()

	s.writeDocument(w, data)
}

func (s *MockFlairServer) handleReading(w http.ResponseWriter, resourceType, id string) {
	s.mu.Lock()
	r, ok := s.resources[key(resourceType, id)]
	var reading map[string]interface{}
	if ok {
		reading = copyMap(r.Reading)
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", resourceType, id))
		return
	}
	s.writeDocument(w, map[string]interface{}{
		"type":       "sensor-readings",
		"id":         id + "-reading",
		"attributes": reading,
	})
}

func (s *MockFlairServer) handlePatch(w http.ResponseWriter, r *http.Request, resourceType, id string) {
	var body struct {
		Data struct {
			Type       string                 `json:"type"`
			ID         string                 `json:"id"`
			Attributes map[string]interface{} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	status := s.patchStatus
	res, ok := s.resources[key(resourceType, id)]
	if status == 0 && ok {
		for k, v := range body.Data.Attributes {
			res.Attributes[k] = v
		}
		s.patches = append(s.patches, PatchCall{
			Timestamp:    time.Now(),
			ResourceType: resourceType,
			ID:           id,
			Attributes:   body.Data.Attributes,
		})
	}
	s.mu.Unlock()

	switch {
	case status != 0:
		s.writeError(w, status, "rejected")
	case !ok:
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", resourceType, id))
	default:
		s.writeDocument(w, nil)
	}
}

func (s *MockFlairServer) writeDocument(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

func (s *MockFlairServer) writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"errors": []map[string]string{{"status": fmt.Sprint(status), "detail": detail}},
	})
}

func (r *mockResource) object() map[string]interface{} {
	rels := make(map[string]interface{}, len(r.Relationships))
	for name, data := range r.Relationships {
		rels[name] = map[string]interface{}{"data": data}
	}
	return map[string]interface{}{
		"type":          r.Type,
		"id":            r.ID,
		"attributes":    copyMap(r.Attributes),
		"relationships": rels,
	}
}

// GetPatches returns all PATCH requests since the last clear
func (s *MockFlairServer) GetPatches() []PatchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([]PatchCall, len(s.patches))
	copy(calls, s.patches)
	return calls
}

// ClearPatches resets the PATCH log
func (s *MockFlairServer) ClearPatches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = nil
}

// FindPatch returns the most recent PATCH to the resource, or nil.
func (s *MockFlairServer) FindPatch(resourceType, id string) *PatchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.patches) - 1; i >= 0; i-- {
		if s.patches[i].ResourceType == resourceType && s.patches[i].ID == id {
			call := s.patches[i]
			return &call
		}
	}
	return nil
}

// CountPatches counts PATCH requests to resourceType.
func (s *MockFlairServer) CountPatches(resourceType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, call := range s.patches {
		if call.ResourceType == resourceType {
			count++
		}
	}
	return count
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
