package plugin

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/cigen-dev/cigen/internal/diag"
)

// defaultHookTimeout bounds a single hook call per spec.md §4.8 ("a hook
// call that does not respond within 30s is treated as a crash").
const defaultHookTimeout = 30 * time.Second

// shutdownGrace is how long the host waits after closing a plugin's stdin
// before force-terminating it.
const shutdownGrace = 5 * time.Second

// Host manages the lifecycle of one spawned plugin process: handshake,
// capability bookkeeping, hook dispatch, and shutdown.
type Host struct {
	name    string
	cmd     *exec.Cmd
	tr      Transport
	info    PluginInfo
	mu      sync.Mutex // serializes hook calls; one in flight per plugin
	timeout time.Duration
}

// Spawn launches command/args as a child process, performs the
// Hello/PluginInfo handshake, and returns a ready Host. coreVersion is
// echoed to the plugin so it can refuse an incompatible core.
func Spawn(command string, args []string, coreVersion string, env map[string]string) (*Host, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &diag.PluginError{Provider: command, Message: "stdin pipe: " + err.Error()}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &diag.PluginError{Provider: command, Message: "stdout pipe: " + err.Error()}
	}
	if err := cmd.Start(); err != nil {
		return nil, &diag.PluginError{Provider: command, Message: "spawn: " + err.Error()}
	}

	h := &Host{
		name:    command,
		cmd:     cmd,
		tr:      newProcessTransport(stdin, stdout),
		timeout: defaultHookTimeout,
	}

	hello := Hello{Protocol: ProtocolVersion, CoreVersion: coreVersion, Env: env}
	if err := h.tr.WriteFrame(hello.Marshal()); err != nil {
		h.killNow()
		return nil, &diag.PluginError{Provider: command, Message: "handshake write: " + err.Error()}
	}
	reply, err := h.tr.ReadFrame()
	if err != nil {
		h.killNow()
		return nil, &diag.PluginError{Provider: command, Message: "handshake read: " + err.Error()}
	}
	info, err := UnmarshalPluginInfo(reply)
	if err != nil {
		h.killNow()
		return nil, &diag.PluginError{Provider: command, Message: "handshake decode: " + err.Error()}
	}
	if info.Protocol != ProtocolVersion {
		h.killNow()
		return nil, &diag.PluginError{
			Provider: command,
			Message:  fmt.Sprintf("protocol mismatch: host=%d plugin=%d", ProtocolVersion, info.Protocol),
		}
	}
	h.info = info
	h.name = info.Name
	return h, nil
}

// Info returns the handshake reply the plugin sent.
func (h *Host) Info() PluginInfo { return h.info }

// CheckExclusive enforces spec.md §4.8's provider:* capability
// exclusivity: at most one loaded plugin may claim a given provider:*
// capability. taken is the set already claimed by previously loaded
// plugins; CheckExclusive returns the capabilities this plugin newly
// claims, or an error naming the clash.
func (h *Host) CheckExclusive(taken map[string]string) ([]string, error) {
	claims := h.info.HasCapabilityPrefix("provider:")
	for _, c := range claims {
		if owner, ok := taken[c]; ok {
			return nil, &diag.PluginError{
				Provider: h.name,
				Message:  fmt.Sprintf("capability %s already claimed by plugin %q", c, owner),
			}
		}
	}
	return claims, nil
}

// Detect calls the Detect hook.
func (h *Host) Detect(req DetectRequest) (DetectResponse, error) {
	var resp DetectResponse
	err := h.call("detect", req.Marshal(), func(data []byte) { resp = UnmarshalDetectResponse(data) })
	return resp, err
}

// Plan calls the Plan hook.
func (h *Host) Plan(req PlanRequest) (PlanResponse, error) {
	var resp PlanResponse
	err := h.call("plan", req.Marshal(), func(data []byte) { resp = UnmarshalPlanResponse(data) })
	return resp, err
}

// Generate calls the Generate hook.
func (h *Host) Generate(req GenerateRequest) (GenerateResponse, error) {
	var resp GenerateResponse
	err := h.call("generate", req.Marshal(), func(data []byte) { resp = UnmarshalGenerateResponse(data) })
	return resp, err
}

// Validate calls the Validate hook.
func (h *Host) Validate(req ValidateRequest) (ValidateResponse, error) {
	var resp ValidateResponse
	err := h.call("validate", req.Marshal(), func(data []byte) { resp = UnmarshalValidateResponse(data) })
	return resp, err
}

// Preflight calls the Preflight hook.
func (h *Host) Preflight(req PreflightRequest) (PreflightResponse, error) {
	var resp PreflightResponse
	err := h.call("preflight", req.Marshal(), func(data []byte) { resp = UnmarshalPreflightResponse(data) })
	return resp, err
}

// call serializes one request/response round trip against the plugin,
// bounding it by h.timeout. A timeout, a transport error, or a decode
// failure is reported as a PluginError scoped to this plugin only — per
// spec.md §4.8, a crashed or hung plugin fails its own provider, not the
// whole run.
func (h *Host) call(hook string, payload []byte, decode func([]byte)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if err := h.tr.WriteFrame(payload); err != nil {
			done <- result{err: err}
			return
		}
		data, err := h.tr.ReadFrame()
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return &diag.PluginError{Provider: h.name, Message: fmt.Sprintf("%s: %v", hook, r.err)}
		}
		decode(r.data)
		return nil
	case <-time.After(h.timeout):
		h.killNow()
		return &diag.PluginError{Provider: h.name, Message: fmt.Sprintf("%s: timed out after %s", hook, h.timeout)}
	}
}

// Shutdown closes the plugin's stdin so it can exit cooperatively, then
// force-terminates it if it hasn't exited within shutdownGrace.
func (h *Host) Shutdown() error {
	_ = h.tr.Close()
	waited := make(chan error, 1)
	go func() { waited <- h.cmd.Wait() }()

	select {
	case err := <-waited:
		return err
	case <-time.After(shutdownGrace):
		h.killNow()
		<-waited
		return &diag.PluginError{Provider: h.name, Message: "did not exit within grace period, killed"}
	}
}

func (h *Host) killNow() {
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
}

// RequiresSatisfied reports the first requirement this plugin declares
// that is absent from loaded (the set of capabilities every currently
// loaded plugin, including this one, together provide).
func RequiresSatisfied(info PluginInfo, loaded map[string]bool) (string, bool) {
	for _, req := range info.Requires {
		if !loaded[req] {
			return req, false
		}
	}
	return "", true
}

// ConflictsPresent reports the first capability this plugin declares a
// conflict with that is present in loaded.
func ConflictsPresent(info PluginInfo, loaded map[string]bool) (string, bool) {
	for _, c := range info.ConflictsWith {
		if loaded[c] {
			return c, true
		}
	}
	return "", false
}

// describeCapabilities renders a plugin's capability list for diagnostics.
func describeCapabilities(info PluginInfo) string {
	return strings.Join(info.Capabilities, ", ")
}
