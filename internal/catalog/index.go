package catalog

import (
	"fmt"

	"github.com/rs/zerolog"

	"iams2rf/internal"
	"iams2rf/internal/snapshot"
	"iams2rf/internal/util"
)

type Index struct {
	byID   map[string]*internal.Authority
	byKind map[internal.RecordType]int
}

func NewIndex(auths ...*internal.Authority) *Index {
	idx := &Index{
		byID:   make(map[string]*internal.Authority, len(auths)),
		byKind: map[internal.RecordType]int{},
	}
	for _, a := range auths {
		idx.add(a)
	}
	return idx
}

func (idx *Index) add(a *internal.Authority) {
	if _, seen := idx.byID[a.ID]; !seen {
		idx.byKind[a.Kind]++
	}
	idx.byID[a.ID] = a
}

func (idx *Index) Lookup(id string) (*internal.Authority, bool) {
	a, ok := idx.byID[id]
	return a, ok
}

func (idx *Index) Len() int {
	return len(idx.byID)
}

func (idx *Index) CountByKind(kind internal.RecordType) int {
	return idx.byKind[kind]
}

// BuildIndex is the first pass over the snapshot. Lines before the first
// authority header are skipped and only authority records are parsed.
func BuildIndex(src snapshot.Source, log zerolog.Logger) (*Index, error) {
	idx := NewIndex()
	seen := 0
	_, err := snapshot.Each(src, func(rec snapshot.Record) error {
		seen++
		if !rec.Type().IsAuthority() {
			return nil
		}
		auth, warnings := ParseAuthority(rec.ID, util.Clean(rec.Text))
		for _, w := range warnings {
			log.Warn().Str("code", string(internal.CodeAuthorityField)).Str("record", rec.ID).Err(w).Msg("authority field")
		}
		if auth == nil {
			return nil
		}
		idx.add(auth)
		if seen%10000 == 0 {
			log.Debug().Int("records", seen).Int("authorities", idx.Len()).Msg("indexing")
		}
		return nil
	}, snapshot.SkipUntil(snapshot.IsAuthorityHeader))
	if err != nil {
		return nil, fmt.Errorf("build authority index: %w", err)
	}
	log.Info().Int("records", seen).Int("authorities", idx.Len()).Msg("authority index built")
	return idx, nil
}
