// Package store persists solved runs so that repeated requests for the same
// network, start and budget can be answered without searching again.
//
// A run is addressed by its Fingerprint: a SHA-256 digest of a canonical
// encoding of the valve rows, the start, the budget and the tunnel mode. Row
// and tunnel order do not change the fingerprint.
//
// Two backends implement Cache:
//
//   - SQLite (this package) keeps every run in a WAL-mode database and adds
//     History for listing past runs.
//   - store/redis keeps the latest run per fingerprint under a TTL.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/valve"
)

// ErrInvalidRecord indicates a record without a run id or fingerprint.
var ErrInvalidRecord = errors.New("store: invalid record")

// Record is one solved run.
type Record struct {
	RunID       string          `json:"run_id"`
	Fingerprint string          `json:"fingerprint"`
	Start       string          `json:"start"`
	Budget      int             `json:"budget"`
	Strategy    string          `json:"strategy"`
	MaxPressure uint64          `json:"max_pressure"`
	Actions     []search.Action `json:"actions"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Cache looks up and stores runs by fingerprint.
type Cache interface {
	// Get returns the most recent run stored under fp; ok is false on a miss.
	Get(ctx context.Context, fp string) (rec Record, ok bool, err error)
	// Put stores rec under rec.Fingerprint.
	Put(ctx context.Context, rec Record) error
	Close() error
}

// NewRecord wraps res into a Record with a fresh run id.
func NewRecord(fp, start string, budget int, res search.Result) Record {
	return Record{
		RunID:       uuid.New().String(),
		Fingerprint: fp,
		Start:       start,
		Budget:      budget,
		Strategy:    res.Strategy.String(),
		MaxPressure: res.MaxPressureReleased,
		Actions:     res.Actions,
		CreatedAt:   time.Now().UTC(),
	}
}

// Result converts rec back to a search.Result. Stats are not persisted.
func (r Record) Result() (search.Result, error) {
	st, err := search.ParseStrategy(r.Strategy)
	if err != nil {
		return search.Result{}, err
	}

	return search.Result{
		MaxPressureReleased: r.MaxPressure,
		Actions:             r.Actions,
		Strategy:            st,
	}, nil
}

func (r Record) validate() error {
	if r.RunID == "" || r.Fingerprint == "" {
		return fmt.Errorf("%w: run %q fingerprint %q", ErrInvalidRecord, r.RunID, r.Fingerprint)
	}

	return nil
}

// Fingerprint returns the hex SHA-256 of the canonical form of a request.
//
// Rows are sorted by id and each row's tunnels are sorted, so two inputs that
// describe the same network hash alike.
func Fingerprint(rows []valve.Row, start string, budget int, undirected bool) string {
	sorted := slices.Clone(rows)
	slices.SortFunc(sorted, func(a, b valve.Row) int { return strings.Compare(a.ID, b.ID) })

	h := sha256.New()
	for _, r := range sorted {
		tunnels := slices.Clone(r.Tunnels)
		slices.Sort(tunnels)
		fmt.Fprintf(h, "%s %d %s\n", r.ID, r.Flow, strings.Join(tunnels, ","))
	}
	fmt.Fprintf(h, "start=%s budget=%d undirected=%t\n", start, budget, undirected)

	return hex.EncodeToString(h.Sum(nil))
}
