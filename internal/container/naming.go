// Package container implements the chunked binary persistence format for
// epoch stores, including byte-budget file splitting and chained reads.
package container

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/errors"
)

// Ext is the container file extension.
const Ext = ".nse"

// stemSuffix is the token a structured-scheme filename stem must end
// with, preceded by an underscore: "run1_epo.nse".
const stemSuffix = "epo"

// chunkNames returns the n file names a split write produces for the
// destination path, first chunk first. With n == 1 the destination name
// is used unchanged under either scheme.
func chunkNames(path string, n int, scheme string) ([]string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if ext != Ext {
		return nil, errors.Newf("destination %q must use the %s extension", base, Ext).
			Category(errors.CategoryValidation).
			Build()
	}

	switch scheme {
	case conf.SplitNamingLegacy:
		names := make([]string, n)
		for i := range names {
			if i == 0 {
				names[i] = filepath.Join(dir, stem+ext)
			} else {
				names[i] = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
			}
		}
		return names, nil

	case conf.SplitNamingStructured:
		prefix, ok := strings.CutSuffix(stem, "_"+stemSuffix)
		if !ok {
			return nil, errors.Newf("structured split naming requires the filename stem to end with %q, got %q",
				"_"+stemSuffix, stem).
				Category(errors.CategoryValidation).
				Build()
		}
		if n == 1 {
			return []string{filepath.Join(dir, stem+ext)}, nil
		}
		names := make([]string, n)
		for i := range names {
			names[i] = filepath.Join(dir, fmt.Sprintf("%s_split-%02d_%s%s", prefix, i+1, stemSuffix, ext))
		}
		return names, nil

	default:
		return nil, errors.Newf("invalid split naming scheme %q", scheme).
			Category(errors.CategoryValidation).
			Build()
	}
}
