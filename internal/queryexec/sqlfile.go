package queryexec

import (
	"fmt"
	"os"
	"strings"
)

// ReadSQL loads a stored SQL template from disk. A missing file is reported
// as-is so callers can distinguish it from execution failures.
func ReadSQL(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("query file %s not available: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("query file %s not available: is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeclaredParams extracts the parameter names a template declares in its
// header comment:
//
//	/* Report of active employees.
//	   Parameters: department:string, year:int
//	*/
//
// The returned map is name -> declared type. Templates without the marker
// declare no parameters.
func DeclaredParams(sqlText string) map[string]string {
	_, rest, found := strings.Cut(sqlText, "Parameters:")
	if !found {
		return nil
	}

	line := rest
	if before, _, ok := strings.Cut(line, "*/"); ok {
		line = before
	}
	if idx := strings.IndexAny(line, "\r\n"); idx >= 0 {
		line = line[:idx]
	}

	params := make(map[string]string)
	for _, entry := range strings.Split(line, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, kind, ok := strings.Cut(entry, ":")
		if !ok {
			params[entry] = ""
			continue
		}
		params[strings.TrimSpace(name)] = strings.TrimSpace(kind)
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
