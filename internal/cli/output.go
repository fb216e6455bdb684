package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roboco-io/qmdtree/internal/parser"
)

// parseInput parses path, or standard input when path is "-".
func parseInput(cmd *cobra.Command, path string, opts parser.Options) (*parser.Result, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("표준 입력 읽기 실패: %w", err)
		}
		res, err := parser.NewFromBytes("stdin", data, opts).Parse()
		if err != nil {
			return nil, fmt.Errorf("문서 파싱 실패: %w", err)
		}
		return res, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("파일을 찾을 수 없습니다: %s", path)
	}
	res, err := parser.ParseFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("문서 파싱 실패: %w", err)
	}
	return res, nil
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, v any, format string, pretty bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		if pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()

	default:
		return fmt.Errorf("지원하지 않는 출력 형식: %s", format)
	}
}

// writeOutput sends the output of fn to path, or to stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("파일 저장 실패: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("파일 저장 실패: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("파일 저장 실패: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "저장 완료: %s\n", path)
	return nil
}
