// Package modelconfig reads and writes the active model of the agent
// gateway. The gateway's config RPC is preferred; when it cannot be reached
// the local configuration file is used instead. Every call reports which of
// the two paths produced its result.
package modelconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docker/model-switcher/pkg/atomicfile"
	"github.com/docker/model-switcher/pkg/gateway"
)

// DefaultMainAgent is the agent whose override shadows the defaults primary.
const DefaultMainAgent = "main"

var (
	// ErrConfigUnavailable is returned when neither the gateway nor the local file could be read.
	ErrConfigUnavailable = errors.New("model configuration unavailable")
	// ErrApplyRejected is returned when the gateway refuses the model id itself.
	ErrApplyRejected = errors.New("gateway rejected model")
	// ErrMissingFallbacks is returned when the local file has no fallback models.
	// Writing a primary into such a file would leave the agent without a recovery path.
	ErrMissingFallbacks = errors.New("configuration has no fallback models")
)

// Source tells which path served a Resolution.
type Source int

const (
	SourceRemote Source = iota + 1
	SourceFile
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "gateway"
	case SourceFile:
		return "file"
	default:
		return "none"
	}
}

// Resolution is the outcome of a read or write.
type Resolution struct {
	Model  string
	Source Source
	// RemoteErr is the gateway failure that caused a file fallback, if any.
	RemoteErr error
}

// Remote is the gateway config RPC.
type Remote interface {
	GetConfig(ctx context.Context) (json.RawMessage, error)
	PatchConfig(ctx context.Context, patch any) error
}

type Accessor struct {
	path      string
	remote    Remote
	mainAgent string
}

type Opt func(*Accessor)

// WithRemote enables the gateway path. Without it only the file is used.
func WithRemote(remote Remote) Opt {
	return func(a *Accessor) {
		a.remote = remote
	}
}

func WithMainAgent(id string) Opt {
	return func(a *Accessor) {
		if id != "" {
			a.mainAgent = id
		}
	}
}

func New(path string, opts ...Opt) *Accessor {
	a := &Accessor{
		path:      path,
		mainAgent: DefaultMainAgent,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Path returns the local configuration file.
func (a *Accessor) Path() string {
	return a.path
}

// ReadFile returns the raw local configuration document.
func (a *Accessor) ReadFile() ([]byte, error) {
	return atomicfile.Read(a.path)
}

// Active returns the model currently driving the main agent.
func (a *Accessor) Active(ctx context.Context) (Resolution, error) {
	var remoteErr error
	if a.remote != nil {
		doc, err := a.remote.GetConfig(ctx)
		if err == nil {
			model, err := activeModel(doc, a.mainAgent)
			if err == nil {
				return Resolution{Model: model, Source: SourceRemote}, nil
			}
			remoteErr = &gateway.Error{Method: gateway.MethodConfigGet, Kind: gateway.KindTransient, Err: err}
		} else {
			remoteErr = err
		}
		slog.Warn("Reading model from gateway failed, falling back to config file", "path", a.path, "error", remoteErr)
	}

	doc, err := a.ReadFile()
	if err != nil {
		return Resolution{RemoteErr: remoteErr}, fmt.Errorf("%w: %w", ErrConfigUnavailable, errors.Join(remoteErr, err))
	}
	model, err := activeModel(doc, a.mainAgent)
	if err != nil {
		return Resolution{RemoteErr: remoteErr}, fmt.Errorf("%w: %s: %w", ErrConfigUnavailable, a.path, errors.Join(remoteErr, err))
	}

	return Resolution{Model: model, Source: SourceFile, RemoteErr: remoteErr}, nil
}

// Apply makes id the active model. A rejection by the gateway is final and
// never retried against the file, so the gateway and the file cannot drift
// apart. Any other gateway failure falls back to rewriting the file.
//
// A failed Apply leaves the configuration in an unknown state; callers must
// restore a known model rather than resubmit the same call.
func (a *Accessor) Apply(ctx context.Context, id string) (Resolution, error) {
	var remoteErr error
	if a.remote != nil {
		remoteErr = a.applyRemote(ctx, id)
		if remoteErr == nil {
			slog.Info("Applied model through gateway", "model", id)
			return Resolution{Model: id, Source: SourceRemote}, nil
		}
		if gateway.KindOf(remoteErr) == gateway.KindRejected {
			return Resolution{RemoteErr: remoteErr}, fmt.Errorf("%w %q: %w", ErrApplyRejected, id, remoteErr)
		}
		slog.Warn("Applying model through gateway failed, falling back to config file", "model", id, "path", a.path, "error", remoteErr)
	}

	if err := a.applyFile(id); err != nil {
		return Resolution{RemoteErr: remoteErr}, err
	}

	slog.Info("Applied model to config file", "model", id, "path", a.path)
	return Resolution{Model: id, Source: SourceFile, RemoteErr: remoteErr}, nil
}

func (a *Accessor) applyRemote(ctx context.Context, id string) error {
	// The current document tells whether a main agent override must be
	// patched too. If the gateway cannot answer this, it will not take the
	// patch either, so give up here and let the caller fall back.
	current, err := a.remote.GetConfig(ctx)
	if err != nil {
		if gateway.KindOf(err) == gateway.KindRejected {
			// A refused read says nothing about the model being applied.
			return &gateway.Error{Method: gateway.MethodConfigGet, Kind: gateway.KindTransient, Err: err}
		}
		return err
	}

	patch, err := remotePatch(current, id, a.mainAgent)
	if err != nil {
		return &gateway.Error{Method: gateway.MethodConfigPatch, Kind: gateway.KindTransient, Err: err}
	}

	return a.remote.PatchConfig(ctx, patch)
}

func (a *Accessor) applyFile(id string) error {
	doc, err := a.ReadFile()
	if err != nil {
		return fmt.Errorf("loading %s: %w", a.path, err)
	}

	updated, err := setActiveModel(doc, id, a.mainAgent)
	if err != nil {
		return fmt.Errorf("updating %s: %w", a.path, err)
	}

	return atomicfile.Write(a.path, updated)
}
