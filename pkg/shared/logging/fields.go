// Package logging carries ralph's structured-logging conventions: a
// small fluent Fields builder that every component fills in the same
// order (component, operation, resource, ...) before WithFields hands the
// map to a logr.Logger, plus the process-wide logger constructor.
package logging

import "time"

// Fields is a map of structured log attributes; it keeps no key order.
type Fields map[string]interface{}

// NewFields returns an empty Fields builder.
func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

func (f Fields) Resource(resourceType, name string) Fields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f Fields) RequestID(id string) Fields {
	if id != "" {
		f["request_id"] = id
	}
	return f
}

func (f Fields) TraceID(id string) Fields {
	if id != "" {
		f["trace_id"] = id
	}
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

// EntityID tags the target entity being explored, a ralph-specific
// field not present in the generic builder vocabulary above.
func (f Fields) EntityID(id string) Fields {
	if id != "" {
		f["entity_id"] = id
	}
	return f
}

// RunID tags the scheduler run an event belongs to.
func (f Fields) RunID(id string) Fields {
	if id != "" {
		f["run_id"] = id
	}
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}
