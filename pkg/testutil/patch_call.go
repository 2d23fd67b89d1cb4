package testutil

import "time"

// PatchCall records an accepted PATCH for verification
type PatchCall struct {
	Timestamp    time.Time
	ResourceType string
	ID           string
	Attributes   map[string]interface{}
}

// FilterPatches filters calls by resource type
func FilterPatches(calls []PatchCall, resourceType string) []PatchCall {
	var filtered []PatchCall
	for _, call := range calls {
		if call.ResourceType == resourceType {
			filtered = append(filtered, call)
		}
	}
	return filtered
}

// FindPatchWithAttribute finds the most recent call that set name to value
func FindPatchWithAttribute(calls []PatchCall, resourceType, name string, value interface{}) *PatchCall {
	for i := len(calls) - 1; i >= 0; i-- {
		call := calls[i]
		if call.ResourceType != resourceType {
			continue
		}
		if v, ok := call.Attributes[name]; ok && v == value {
			return &call
		}
	}
	return nil
}
