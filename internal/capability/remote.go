package capability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region methods

// The registry service exposes a schemaless invoke surface: requests and
// responses travel as structpb.Struct payloads, so no generated stubs are
// needed on the consuming side.
const (
	invokeMethod   = "/coach.CapabilityRegistry/Invoke"
	describeMethod = "/coach.CapabilityRegistry/Describe"
)

// #endregion methods

// #region client-struct

// RemoteRegistry talks to the external capability registry over gRPC.
type RemoteRegistry struct {
	conn *grpc.ClientConn

	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// #endregion client-struct

// #region constructor

// NewRemoteRegistry connects to the registry service and loads the static
// descriptor map (default timeout and fallback per capability).
func NewRemoteRegistry(ctx context.Context, addr string) (*RemoteRegistry, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	r := &RemoteRegistry{
		conn:        conn,
		descriptors: make(map[string]Descriptor),
	}
	if err := r.loadDescriptors(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

// Close shuts down the gRPC connection.
func (r *RemoteRegistry) Close() error {
	return r.conn.Close()
}

// #endregion constructor

// #region invoke

// Invoke calls the named capability with a JSON-shaped input object.
func (r *RemoteRegistry) Invoke(ctx context.Context, name string, input map[string]any) (Result, error) {
	payload := map[string]any{
		"capability": name,
		"input":      input,
	}
	req, err := structpb.NewStruct(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode invoke payload: %w", err)
	}

	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, invokeMethod, req, resp); err != nil {
		return Result{}, fmt.Errorf("invoke %s rpc: %w", name, err)
	}

	fields := resp.AsMap()
	result := Result{}
	if v, ok := fields["success"].(bool); ok {
		result.Success = v
	}
	if v, ok := fields["data"].(map[string]any); ok {
		result.Data = v
	}
	if v, ok := fields["error"].(string); ok {
		result.Err = v
	}
	return result, nil
}

// #endregion invoke

// #region describe

// Describe returns the cached descriptor for a capability name.
func (r *RemoteRegistry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// loadDescriptors fetches the static capability map once at startup.
func (r *RemoteRegistry) loadDescriptors(ctx context.Context) error {
	req, err := structpb.NewStruct(map[string]any{})
	if err != nil {
		return fmt.Errorf("encode describe payload: %w", err)
	}
	resp := &structpb.Struct{}
	if err := r.conn.Invoke(ctx, describeMethod, req, resp); err != nil {
		return fmt.Errorf("describe rpc: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, raw := range resp.AsMap() {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		desc := Descriptor{Name: name}
		if ms, ok := entry["timeout_ms"].(float64); ok {
			desc.DefaultTimeout = time.Duration(ms) * time.Millisecond
		}
		if fb, ok := entry["fallback"].(string); ok {
			desc.Fallback = fb
		}
		r.descriptors[name] = desc
	}
	return nil
}

// #endregion describe
