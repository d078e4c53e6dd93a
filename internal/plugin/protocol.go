// Package plugin implements spec.md §4.8, the Plugin Host (C9): spawning
// provider emitters as child processes (or, per §9's future-iteration
// note, WASI guests — see internal/plugin/wasmtransport), framing
// requests/responses as length-prefixed protobuf, running the
// Hello/PluginInfo handshake, and dispatching the five hooks.
package plugin

import "google.golang.org/protobuf/encoding/protowire"

// ProtocolVersion is this host's wire-protocol number. A plugin reporting
// a different number in its PluginInfo fails the handshake per spec.md
// §4.8 ("mismatched protocol numbers abort").
const ProtocolVersion = 1

// Hello is the host's handshake opener.
type Hello struct {
	Protocol    int32
	CoreVersion string
	Env         map[string]string
}

func (h Hello) Marshal() []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(h.Protocol))
	b = appendString(b, 2, h.CoreVersion)
	b = appendStringMap(b, 3, h.Env)
	return b
}

func UnmarshalHello(data []byte) (Hello, error) {
	var h Hello
	h.Env = map[string]string{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			h.Protocol = int32(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			h.CoreVersion = string(v)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			k, val := decodeStringMapEntry(v)
			h.Env[k] = val
			return n, true
		}
		return 0, false
	})
	return h, err
}

// PluginInfo is the plugin's handshake reply.
type PluginInfo struct {
	Name          string
	Version       string
	Protocol      int32
	Capabilities  []string
	Requires      []string
	ConflictsWith []string
}

func (p PluginInfo) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, p.Name)
	b = appendString(b, 2, p.Version)
	b = appendVarint(b, 3, uint64(p.Protocol))
	b = appendStrings(b, 4, p.Capabilities)
	b = appendStrings(b, 5, p.Requires)
	b = appendStrings(b, 6, p.ConflictsWith)
	return b
}

func UnmarshalPluginInfo(data []byte) (PluginInfo, error) {
	var p PluginInfo
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			p.Name = string(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			p.Version = string(v)
			return n, true
		case 3:
			v, n := protowire.ConsumeVarint(b)
			p.Protocol = int32(v)
			return n, true
		case 4:
			v, n := protowire.ConsumeBytes(b)
			p.Capabilities = append(p.Capabilities, string(v))
			return n, true
		case 5:
			v, n := protowire.ConsumeBytes(b)
			p.Requires = append(p.Requires, string(v))
			return n, true
		case 6:
			v, n := protowire.ConsumeBytes(b)
			p.ConflictsWith = append(p.ConflictsWith, string(v))
			return n, true
		}
		return 0, false
	})
	return p, err
}

// HasCapabilityPrefix returns those of p.Capabilities that start with
// prefix (e.g. "provider:"), nil if none do — used by the host to enforce spec.md §4.8's
// provider:* exclusivity rule.
func (p PluginInfo) HasCapabilityPrefix(prefix string) []string {
	var out []string
	for _, c := range p.Capabilities {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

// Diagnostic mirrors internal/diag.Diagnostic's shape over the wire —
// the plugin process doesn't share that package, so hooks that return
// diagnostics carry this flattened form instead.
type Diagnostic struct {
	Severity string
	Code     string
	Message  string
}

func (d Diagnostic) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, d.Severity)
	b = appendString(b, 2, d.Code)
	b = appendString(b, 3, d.Message)
	return b
}

func unmarshalDiagnostic(data []byte) Diagnostic {
	var d Diagnostic
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			d.Severity = string(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			d.Code = string(v)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			d.Message = string(v)
			return n, true
		}
		return 0, false
	})
	return d
}

func appendDiagnostics(b []byte, num protowire.Number, ds []Diagnostic) []byte {
	for _, d := range ds {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, d.Marshal())
	}
	return b
}

// Fragment is one atomic output a plugin's Generate hook returns — a
// path, its rendered content, a merge strategy, and an ordering hint.
type Fragment struct {
	Path          string
	Content       []byte
	MergeStrategy string
	Order         int32
}

func (f Fragment) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, f.Path)
	b = appendBytes(b, 2, f.Content)
	b = appendString(b, 3, f.MergeStrategy)
	b = appendVarint(b, 4, uint64(f.Order))
	return b
}

func unmarshalFragment(data []byte) Fragment {
	var f Fragment
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			f.Path = string(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			f.Content = append([]byte{}, v...)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			f.MergeStrategy = string(v)
			return n, true
		case 4:
			v, n := protowire.ConsumeVarint(b)
			f.Order = int32(v)
			return n, true
		}
		return 0, false
	})
	return f
}

// DetectRequest/DetectResponse implement the Detect(RepoSnapshot) hook.
type DetectRequest struct {
	RepoSnapshot []byte
}

func (r DetectRequest) Marshal() []byte { return appendBytes(nil, 1, r.RepoSnapshot) }

func UnmarshalDetectRequest(data []byte) DetectRequest {
	var r DetectRequest
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			r.RepoSnapshot = append([]byte{}, v...)
			return n, true
		}
		return 0, false
	})
	return r
}

type DetectResponse struct {
	Signals    []string
	Facts      map[string]string
	Confidence float64
}

func (r DetectResponse) Marshal() []byte {
	var b []byte
	b = appendStrings(b, 1, r.Signals)
	b = appendStringMap(b, 2, r.Facts)
	if r.Confidence != 0 {
		b = protowire.AppendTag(b, 3, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, uint64frombits(r.Confidence))
	}
	return b
}

func UnmarshalDetectResponse(data []byte) DetectResponse {
	r := DetectResponse{Facts: map[string]string{}}
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.Signals = append(r.Signals, string(v))
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			k, val := decodeStringMapEntry(v)
			r.Facts[k] = val
			return n, true
		case 3:
			v, n := protowire.ConsumeFixed64(b)
			r.Confidence = float64frombits(v)
			return n, true
		}
		return 0, false
	})
	return r
}

// PlanRequest/PlanResponse implement the Plan(schema,facts,flags) hook.
type PlanRequest struct {
	Schema []byte
	Facts  map[string]string
	Flags  []string
}

func (r PlanRequest) Marshal() []byte {
	var b []byte
	b = appendBytes(b, 1, r.Schema)
	b = appendStringMap(b, 2, r.Facts)
	b = appendStrings(b, 3, r.Flags)
	return b
}

func UnmarshalPlanRequest(data []byte) PlanRequest {
	r := PlanRequest{Facts: map[string]string{}}
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.Schema = append([]byte{}, v...)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			k, val := decodeStringMapEntry(v)
			r.Facts[k] = val
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			r.Flags = append(r.Flags, string(v))
			return n, true
		}
		return 0, false
	})
	return r
}

type PlanResponse struct {
	Resources    []string
	Dependencies []string
}

func (r PlanResponse) Marshal() []byte {
	var b []byte
	b = appendStrings(b, 1, r.Resources)
	b = appendStrings(b, 2, r.Dependencies)
	return b
}

func UnmarshalPlanResponse(data []byte) PlanResponse {
	var r PlanResponse
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.Resources = append(r.Resources, string(v))
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			r.Dependencies = append(r.Dependencies, string(v))
			return n, true
		}
		return 0, false
	})
	return r
}

// GenerateRequest/GenerateResponse implement the
// Generate(target,graph,work_signatures) hook.
type GenerateRequest struct {
	Target         string
	Graph          []byte
	WorkSignatures map[string]string
}

func (r GenerateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.Target)
	b = appendBytes(b, 2, r.Graph)
	b = appendStringMap(b, 3, r.WorkSignatures)
	return b
}

func UnmarshalGenerateRequest(data []byte) GenerateRequest {
	r := GenerateRequest{WorkSignatures: map[string]string{}}
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.Target = string(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			r.Graph = append([]byte{}, v...)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			k, val := decodeStringMapEntry(v)
			r.WorkSignatures[k] = val
			return n, true
		}
		return 0, false
	})
	return r
}

type GenerateResponse struct {
	Fragments   []Fragment
	Diagnostics []Diagnostic
}

func (r GenerateResponse) Marshal() []byte {
	var b []byte
	for _, f := range r.Fragments {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	b = appendDiagnostics(b, 2, r.Diagnostics)
	return b
}

func UnmarshalGenerateResponse(data []byte) GenerateResponse {
	var r GenerateResponse
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.Fragments = append(r.Fragments, unmarshalFragment(v))
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			r.Diagnostics = append(r.Diagnostics, unmarshalDiagnostic(v))
			return n, true
		}
		return 0, false
	})
	return r
}

// ValidateRequest/ValidateResponse implement the Validate(rendered) hook.
type ValidateRequest struct {
	Rendered []byte
}

func (r ValidateRequest) Marshal() []byte { return appendBytes(nil, 1, r.Rendered) }

func UnmarshalValidateRequest(data []byte) ValidateRequest {
	var r ValidateRequest
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			r.Rendered = append([]byte{}, v...)
			return n, true
		}
		return 0, false
	})
	return r
}

type ValidateResponse struct {
	Diagnostics []Diagnostic
}

func (r ValidateResponse) Marshal() []byte { return appendDiagnostics(nil, 1, r.Diagnostics) }

func UnmarshalValidateResponse(data []byte) ValidateResponse {
	var r ValidateResponse
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			r.Diagnostics = append(r.Diagnostics, unmarshalDiagnostic(v))
			return n, true
		}
		return 0, false
	})
	return r
}

// PreflightRequest/PreflightResponse implement the
// Preflight(job_id,repo_state,prev_signature) hook.
type PreflightRequest struct {
	JobID         string
	RepoState     []byte
	PrevSignature string
}

func (r PreflightRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.JobID)
	b = appendBytes(b, 2, r.RepoState)
	b = appendString(b, 3, r.PrevSignature)
	return b
}

func UnmarshalPreflightRequest(data []byte) PreflightRequest {
	var r PreflightRequest
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			r.JobID = string(v)
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			r.RepoState = append([]byte{}, v...)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			r.PrevSignature = string(v)
			return n, true
		}
		return 0, false
	})
	return r
}

type PreflightResponse struct {
	ShouldRun    bool
	Reason       string
	NewSignature string
}

func (r PreflightResponse) Marshal() []byte {
	var b []byte
	b = appendBool(b, 1, r.ShouldRun)
	b = appendString(b, 2, r.Reason)
	b = appendString(b, 3, r.NewSignature)
	return b
}

func UnmarshalPreflightResponse(data []byte) PreflightResponse {
	var r PreflightResponse
	_ = walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			r.ShouldRun = v != 0
			return n, true
		case 2:
			v, n := protowire.ConsumeBytes(b)
			r.Reason = string(v)
			return n, true
		case 3:
			v, n := protowire.ConsumeBytes(b)
			r.NewSignature = string(v)
			return n, true
		}
		return 0, false
	})
	return r
}
