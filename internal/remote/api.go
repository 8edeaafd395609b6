// Package remote defines the outbound persistence boundary toward the
// hosting platform's record API. The core only needs upserts and deletes
// that either succeed or fail with a classifiable error.
package remote

import (
	"context"

	"github.com/sakugaworks/cutflow/internal/config"
	"github.com/sakugaworks/cutflow/internal/cut"
	"github.com/sakugaworks/cutflow/internal/remote/gormapi"
	"go.uber.org/fx"
)

// RecordAPI accepts full-record upserts and deletes.
type RecordAPI interface {
	UpsertRecord(ctx context.Context, rec *cut.Record) error
	DeleteRecord(ctx context.Context, id string) error
}

// Disabled is the RecordAPI used when remote sync is switched off.
type Disabled struct{}

func (Disabled) UpsertRecord(context.Context, *cut.Record) error { return nil }
func (Disabled) DeleteRecord(context.Context, string) error      { return nil }

// NewFromConfig opens the configured remote mirror, or the disabled
// implementation when CUTFLOW_REMOTE_SYNC is off.
func NewFromConfig(cfg config.Config) (RecordAPI, error) {
	if !cfg.RemoteSync {
		return Disabled{}, nil
	}
	dialector, err := gormapi.Dialect(cfg)
	if err != nil {
		return nil, err
	}
	return gormapi.Open(dialector)
}

// Module wires the remote persistence adapter.
var Module = fx.Module("remote",
	fx.Provide(NewFromConfig),
)
