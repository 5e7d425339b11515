package lifecycle

import (
	"errors"
	"path/filepath"

	"tasktrack/internal/attachstore"
	"tasktrack/internal/metrics"
)

// promotionSet tracks the promotions made inside one transaction.
type promotionSet struct {
	items []*attachstore.Promotion
}

func (s *promotionSet) add(p *attachstore.Promotion) {
	s.items = append(s.items, p)
}

func (s *promotionSet) commit() {
	for _, p := range s.items {
		p.Commit()
	}
	metrics.AttachmentsPromoted.Add(float64(len(s.items)))
}

// revert undoes promotions newest first so overwritten files come back.
func (s *promotionSet) revert() error {
	var errs []error
	for i := len(s.items) - 1; i >= 0; i-- {
		if err := s.items[i].Revert(); err != nil {
			errs = append(errs, err)
		}
	}
	s.items = nil
	return errors.Join(errs...)
}

// without returns paths not occupied by a promoted file.
func (s *promotionSet) without(paths []string) []string {
	if len(s.items) == 0 {
		return paths
	}
	taken := make(map[string]struct{}, len(s.items))
	for _, p := range s.items {
		taken[filepath.Clean(p.Path)] = struct{}{}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := taken[filepath.Clean(p)]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}
