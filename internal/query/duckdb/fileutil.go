package duckdb

import (
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

func writeFile(target string, reader io.Reader) (int64, error) {
	file, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

// readerExpr picks the DuckDB table function for a file by its extension.
func readerExpr(objectKey string, localPaths []string) string {
	switch strings.ToLower(path.Ext(objectKey)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto(%s, header = true)", quoteStringArray(localPaths))
	default:
		return fmt.Sprintf("read_parquet(%s)", quoteStringArray(localPaths))
	}
}

func localExt(objectKey string) string {
	if strings.EqualFold(path.Ext(objectKey), ".csv") {
		return ".csv"
	}
	return ".parquet"
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}
