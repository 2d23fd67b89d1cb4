// Package entity adapts cached Flair resources to host entities.
//
// An adapter keeps only the ids of the resource it represents and resolves
// the current node from the store on every access. Commands follow one
// protocol: validate, translate, send the update, patch the cache with the
// exact attributes sent, notify the host, then request a refresh.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flairbridge/internal/audit"
	"flairbridge/internal/flair"
	"flairbridge/internal/model"

	"go.uber.org/zap"
)

var (
	// ErrUnitPoweredOff is returned when a command needs a powered unit.
	ErrUnitPoweredOff = errors.New("hvac unit is powered off")
	// ErrReadOnly is returned for any command while writes are disabled.
	ErrReadOnly = errors.New("bridge is in read-only mode")
)

// Platform is the host entity domain.
type Platform string

const (
	PlatformClimate Platform = "climate"
	PlatformSelect  Platform = "select"
	PlatformSensor  Platform = "sensor"
)

// Entity categories.
const (
	CategoryNone       = ""
	CategoryConfig     = "config"
	CategoryDiagnostic = "diagnostic"
)

// DeviceInfo groups entities under one device on the host.
type DeviceInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
}

// Entity is the read side shared by all adapters.
type Entity interface {
	UniqueID() string
	Name() string
	Platform() Platform
	Device() DeviceInfo
	Available() bool
	EnabledByDefault() bool
	Category() string
	State() map[string]interface{}
}

// Refresher asks the poll coordinator for an out-of-band refresh.
type Refresher interface {
	RequestRefresh(ctx context.Context)
}

// Notifier tells the host an entity changed state.
type Notifier interface {
	EntityChanged(e Entity)
}

// Recorder stores command outcomes.
type Recorder interface {
	Record(rec audit.Record)
}

// Deps are the collaborators every adapter is built with.
type Deps struct {
	Store     *model.Store
	Gateway   flair.Gateway
	Refresher Refresher
	Notifier  Notifier
	Recorder  Recorder
	Logger    *zap.Logger
	ReadOnly  bool
}

type nopRefresher struct{}

func (nopRefresher) RequestRefresh(context.Context) {}

type nopNotifier struct{}

func (nopNotifier) EntityChanged(Entity) {}

type nopRecorder struct{}

func (nopRecorder) Record(audit.Record) {}

func (d Deps) withDefaults() Deps {
	if d.Refresher == nil {
		d.Refresher = nopRefresher{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// write is one partial update addressed by its cache path.
type write struct {
	path  model.Path
	attrs map[string]interface{}
}

// base carries the collaborators and the write protocol.
type base struct {
	deps     Deps
	logger   *zap.Logger
	uniqueID string
	self     Entity
}

func newBase(deps Deps, uniqueID string) base {
	deps = deps.withDefaults()
	return base{
		deps:     deps,
		logger:   deps.Logger.Named("entity").With(zap.String("entity", uniqueID)),
		uniqueID: uniqueID,
	}
}

func (b *base) UniqueID() string { return b.uniqueID }

func (b *base) structure(id string) (*model.Structure, bool) {
	return b.deps.Store.Structure(id)
}

func (b *base) child(structureID string, c model.Collection, id string) (*model.Resource, bool) {
	return b.deps.Store.Child(structureID, c, id)
}

// apply sends each write in order, patching the cache after each success,
// then notifies the host and requests a refresh. A gateway failure stops
// the sequence before the failed write touches the cache; writes that
// landed before it are still notified and refreshed.
func (b *base) apply(ctx context.Context, command string, value interface{}, writes ...write) error {
	rec := audit.Record{EntityID: b.uniqueID, Command: command, Value: value}

	if b.deps.ReadOnly {
		b.logger.Info("Command ignored in read-only mode", zap.String("command", command))
		rec.Outcome = audit.OutcomeReadOnly
		b.deps.Recorder.Record(rec)
		return ErrReadOnly
	}

	for _, w := range writes {
		if err := b.deps.Gateway.Update(ctx, w.path.ResourceType(), w.path.ID, w.attrs, nil); err != nil {
			b.logger.Error("Failed to update Flair",
				zap.String("command", command),
				zap.String("path", w.path.String()),
				zap.Error(err))
			rec.Outcome = audit.OutcomeFailed
			rec.Reason = err.Error()
			b.deps.Recorder.Record(rec)
			if len(rec.Writes) > 0 {
				// Earlier writes already reached Flair and the cache.
				b.settle(ctx)
			}
			return fmt.Errorf("%s failed: %w", command, err)
		}

		rec.Writes = append(rec.Writes, audit.Write{
			ResourceType: w.path.ResourceType(),
			ID:           w.path.ID,
			Attributes:   w.attrs,
		})

		if err := b.deps.Store.Patch(w.path, w.attrs); err != nil {
			// The resource left the cache between resolve and patch; the
			// refresh below brings the authoritative value back.
			b.logger.Warn("Failed to patch cache", zap.String("path", w.path.String()), zap.Error(err))
		}
	}

	rec.Outcome = audit.OutcomeApplied
	b.deps.Recorder.Record(rec)

	b.settle(ctx)
	return nil
}

// settle notifies the host and asks for a refresh.
func (b *base) settle(ctx context.Context) {
	if b.self != nil {
		b.deps.Notifier.EntityChanged(b.self)
	}
	b.deps.Refresher.RequestRefresh(ctx)
}

// reject logs a validation failure and drops the command.
func (b *base) reject(command string, value interface{}, reason string) error {
	b.logger.Error("Command rejected",
		zap.String("command", command),
		zap.Any("value", value),
		zap.String("reason", reason))
	b.deps.Recorder.Record(audit.Record{
		EntityID: b.uniqueID,
		Command:  command,
		Value:    value,
		Outcome:  audit.OutcomeRejected,
		Reason:   reason,
	})
	return nil
}

// unsupported logs an unknown enumeration value and drops the command.
func (b *base) unsupported(command string, value interface{}) error {
	b.logger.Warn("Unsupported value",
		zap.String("command", command),
		zap.Any("value", value))
	b.deps.Recorder.Record(audit.Record{
		EntityID: b.uniqueID,
		Command:  command,
		Value:    value,
		Outcome:  audit.OutcomeUnsupported,
	})
	return nil
}

// fail records a user-visible failure and returns err.
func (b *base) fail(command string, value interface{}, err error) error {
	b.logger.Warn("Command failed", zap.String("command", command), zap.Error(err))
	b.deps.Recorder.Record(audit.Record{
		EntityID: b.uniqueID,
		Command:  command,
		Value:    value,
		Outcome:  audit.OutcomeFailed,
		Reason:   err.Error(),
	})
	return err
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func upper(s string) string { return strings.ToUpper(s) }

// lowerFirst lower-cases only the first letter.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func floatPtr(v float64) *float64 { return &v }

func structureDevice(st *model.Structure) DeviceInfo {
	return DeviceInfo{ID: st.ID, Name: st.Name(), Manufacturer: "Flair", Model: "Structure"}
}

func childDevice(r *model.Resource, modelName string) DeviceInfo {
	return DeviceInfo{ID: r.ID, Name: r.Name(), Manufacturer: "Flair", Model: modelName}
}
