package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// Snapshot resends every parameter's value to the device.
//
// In FX mode the current values are sent and the device is asked to
// snapshot. In plugin mode every parameter is sent its minimum, then its
// maximum, then its current value, with SnapshotStep between stages, so the
// device registers a change even for values it already holds.
func (r *Registry) Snapshot(ctx context.Context) error {
	params := r.Parameters()

	if r.opts.Mode == ModeFX {
		sendAll(params, (*parameter.DeviceSync).SendCurrentValue)
		if r.opts.Link != nil {
			r.opts.Link.Snapshot()
		}
		r.snapshotSent(len(params))
		return nil
	}

	sendAll(params, (*parameter.DeviceSync).SendMinValue)
	if err := sleep(ctx, r.opts.SnapshotStep); err != nil {
		return err
	}
	sendAll(params, (*parameter.DeviceSync).SendMaxValue)
	if err := sleep(ctx, r.opts.SnapshotStep); err != nil {
		return err
	}
	sendAll(params, (*parameter.DeviceSync).SendCurrentValue)

	r.snapshotSent(len(params))
	return nil
}

func (r *Registry) snapshotSent(n int) {
	r.logDebug("snapshot sent", "parameters", n)
	if r.opts.OnSnapshot != nil {
		r.opts.OnSnapshot(n)
	}
}

func sendAll(params []*parameter.Parameter, send func(*parameter.DeviceSync)) {
	for _, p := range params {
		send(p.Device())
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StoreParameterValues returns the host values of the dynamic parameters in
// declaration order.
func (r *Registry) StoreParameterValues() []float64 {
	dynamic := r.DynamicParameters()
	values := make([]float64, len(dynamic))
	for i, p := range dynamic {
		values[i] = p.HostValue()
	}
	return values
}

// RestoreParameterValues force-writes stored host values onto the dynamic
// parameters and snapshots the device. Extra values are ignored; missing
// ones leave their parameter untouched.
func (r *Registry) RestoreParameterValues(ctx context.Context, values []float64) error {
	for i, p := range r.DynamicParameters() {
		if i >= len(values) {
			break
		}
		p.ForceHostValue(values[i])
	}
	return r.Snapshot(ctx)
}

// Save persists the dynamic parameters' host values under a configuration
// UID.
func (r *Registry) Save(ctx context.Context, repo Repository, configUID int) error {
	dynamic := r.DynamicParameters()
	now := time.Now().UTC()

	values := make([]StoredValue, 0, len(dynamic))
	for _, p := range dynamic {
		values = append(values, StoredValue{
			Name:      p.Name(),
			HostIdx:   p.HostIdx(),
			HostValue: p.HostValue(),
			UpdatedAt: now,
		})
	}

	if err := repo.SaveValues(ctx, configUID, values); err != nil {
		return fmt.Errorf("saving parameter values: %w", err)
	}

	r.logInfo("parameter values saved", "config_uid", configUID, "count", len(values))
	return nil
}

// Load restores host values stored under a configuration UID by parameter
// name and snapshots the device. Unknown and fixed names are skipped.
//
// Returns:
//   - int: Number of parameters restored
//   - error: If loading or the snapshot fails
func (r *Registry) Load(ctx context.Context, repo Repository, configUID int) (int, error) {
	values, err := repo.LoadValues(ctx, configUID)
	if err != nil {
		return 0, fmt.Errorf("loading parameter values: %w", err)
	}

	restored := 0
	for _, v := range values {
		p, err := r.Parameter(v.Name)
		if err != nil || p.IsFixed() {
			continue
		}
		p.ForceHostValue(v.HostValue)
		restored++
	}

	r.logInfo("parameter values loaded", "config_uid", configUID, "count", restored)
	return restored, r.Snapshot(ctx)
}
