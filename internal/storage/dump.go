package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func (d *DB) DumpTable(ctx context.Context, table string, w io.Writer) (int, error) {
	if !reColumn.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	s, err := d.Session(ctx)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	bw := bufio.NewWriter(w)
	n, err := s.Rows(ctx, `SELECT * FROM `+table+` ORDER BY id ASC`, nil, func(row []string) error {
		_, err := bw.WriteString(strings.Join(row, "\t") + "\n")
		return err
	})
	if err != nil {
		return n, fmt.Errorf("dump %s: %w", table, err)
	}
	return n, bw.Flush()
}

func (d *DB) DumpTables(ctx context.Context, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, t := range Tables {
		f, err := os.Create(filepath.Join(dir, t+".txt"))
		if err != nil {
			return counts, err
		}
		n, err := d.DumpTable(ctx, t, f)
		closeErr := f.Close()
		if err != nil {
			return counts, err
		}
		if closeErr != nil {
			return counts, closeErr
		}
		counts[t] = n
	}
	return counts, nil
}
