package epochs

import (
	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/errors"
	"github.com/neurokit/neurokit-go/internal/metadata"
)

// Get returns a new store holding only the epochs whose event matches
// any of the given keys. Keys resolve the same way event names do:
// exact match first, then numeric code, then hierarchical tag subset
// ("auditory" matches "auditory/left" and "auditory/right"). Multiple
// keys union. The drop log is carried over untouched; only the
// selection narrows.
func (s *Store) Get(keys ...string) (*Store, error) {
	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.Newf("no keys given").
			Category(errors.CategoryValidation).
			Build()
	}

	codes, err := s.table.MatchCodes(keys...)
	if err != nil {
		return nil, err
	}

	var rows []int
	for e, ev := range s.rowEvents {
		if _, ok := codes[ev.Code]; ok {
			rows = append(rows, e)
		}
	}
	return s.subsetRows(rows)
}

// Subset returns a new store holding the given rows, in given order.
// Indices refer to the current row numbering.
func (s *Store) Subset(rows []int) (*Store, error) {
	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	seen := make(map[int]struct{}, len(rows))
	prev := -1
	ordered := true
	for _, r := range rows {
		if r < 0 || r >= len(s.selection) {
			return nil, errors.Newf("epoch index %d out of range (%d epochs)", r, len(s.selection)).
				Category(errors.CategoryValidation).
				Build()
		}
		if _, dup := seen[r]; dup {
			return nil, errors.Newf("duplicate epoch index %d", r).
				Category(errors.CategoryValidation).
				Build()
		}
		seen[r] = struct{}{}
		if r <= prev {
			ordered = false
		}
		prev = r
	}
	if !ordered {
		return nil, errors.Newf("epoch indices must be strictly increasing").
			Category(errors.CategoryValidation).
			Build()
	}
	return s.subsetRows(rows)
}

// QueryMetadata returns a new store holding the epochs whose metadata
// row satisfies the SQL boolean expression, e.g.
// "response_time < 0.3 AND condition = 'target'".
func (s *Store) QueryMetadata(expr string) (*Store, error) {
	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	if s.meta == nil {
		return nil, errors.Newf("store has no metadata to query").
			Category(errors.CategoryMetadata).
			Build()
	}
	if backend := conf.Setting().Metadata.Backend; backend != conf.MetadataBackendSQLite {
		return nil, errors.Newf("metadata expression queries need the %q backend (configured: %q); use FilterMetadata instead",
			conf.MetadataBackendSQLite, backend).
			Category(errors.CategoryState).
			Build()
	}
	rows, err := s.meta.Query(expr)
	if err != nil {
		return nil, err
	}
	return s.subsetRows(rows)
}

// FilterMetadata returns a new store holding the epochs whose metadata
// value in the named column matches the condition. Unlike QueryMetadata
// this works with any metadata backend.
func (s *Store) FilterMetadata(name string, op metadata.Op, value any) (*Store, error) {
	if err := s.checkConsistent(); err != nil {
		return nil, err
	}
	if s.meta == nil {
		return nil, errors.Newf("store has no metadata to query").
			Category(errors.CategoryMetadata).
			Build()
	}
	rows, err := s.meta.Filter(name, op, value)
	if err != nil {
		return nil, err
	}
	return s.subsetRows(rows)
}

// subsetRows deep-copies the store restricted to the given current rows.
// The drop log is never modified by subsetting.
func (s *Store) subsetRows(rows []int) (*Store, error) {
	out := s.Copy()
	if err := out.keepRows(rows); err != nil {
		return nil, err
	}
	out.metrics.SetStoreEpochs(len(out.selection))
	return out, nil
}
