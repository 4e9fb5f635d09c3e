package migrate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks the migrations in dir. See ValidateFS.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS checks every .sql file at the root of fsys: the timestamped
// filename, a unique version, and goose annotations in a usable order.
// All problems are reported together.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: filename must be YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[m[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, m[1], prev))
			continue
		}
		versions[m[1]] = name

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := checkAnnotations(data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(versions) == 0 && errs == nil {
		return errors.New("no migrations found")
	}
	return errs
}

// checkAnnotations walks the goose markers line by line: exactly one Up,
// then one Down, and every StatementBegin closed inside its section.
func checkAnnotations(data []byte) error {
	var upLine, downLine int
	openBlock := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; scanner.Scan(); line++ {
		switch strings.TrimSpace(scanner.Text()) {
		case annotationUp:
			if upLine != 0 {
				return fmt.Errorf("line %d: second %q", line, annotationUp)
			}
			upLine = line
		case annotationDown:
			if downLine != 0 {
				return fmt.Errorf("line %d: second %q", line, annotationDown)
			}
			if openBlock != 0 {
				return fmt.Errorf("line %d: StatementBegin at line %d not closed before Down", line, openBlock)
			}
			downLine = line
		case annotationBegin:
			if openBlock != 0 {
				return fmt.Errorf("line %d: nested StatementBegin", line)
			}
			openBlock = line
		case annotationEnd:
			if openBlock == 0 {
				return fmt.Errorf("line %d: StatementEnd without StatementBegin", line)
			}
			openBlock = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	switch {
	case upLine == 0:
		return fmt.Errorf("missing %q", annotationUp)
	case downLine == 0:
		return fmt.Errorf("missing %q", annotationDown)
	case downLine < upLine:
		return fmt.Errorf("%q must come before %q", annotationUp, annotationDown)
	case openBlock != 0:
		return fmt.Errorf("StatementBegin at line %d never closed", openBlock)
	}
	return nil
}
