package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roboco-io/qmdtree/internal/config"
	"github.com/roboco-io/qmdtree/internal/ir"
	"github.com/roboco-io/qmdtree/internal/syntax"
)

var (
	parseFormat    string
	parseOutput    string
	parseAnonymous bool
	parseText      bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "문서를 구문 트리로 출력",
	Long: `문서를 파싱하여 구문 트리를 출력합니다.

출력 형식:
  sexp   이름 있는 노드만 포함한 S-표현식 (기본)
  json   바이트 범위와 진단을 포함한 전체 트리
  yaml   json과 같은 내용의 YAML

파일 대신 - 를 지정하면 표준 입력을 읽습니다.

예시:
  qmdtree parse document.qmd
  qmdtree parse document.qmd --format json --text
  qmdtree parse document.qmd --format yaml -o tree.yaml
  cat notes.md | qmdtree parse -`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "", "출력 형식 (sexp, json, yaml)")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "", "출력 파일 경로 (기본: stdout)")
	parseCmd.Flags().BoolVar(&parseAnonymous, "anonymous", false, "구두점, 공백, 줄바꿈 노드 포함 (json, yaml)")
	parseCmd.Flags().BoolVar(&parseText, "text", false, "리프 노드에 원문 포함 (json, yaml)")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format := s.cfg.Output.Format
	if parseFormat != "" {
		format = parseFormat
	}
	if !config.ValidFormat(format) {
		return fmt.Errorf("지원하지 않는 출력 형식: %s (지원: %s)", format, strings.Join(config.Formats, ", "))
	}

	res, err := parseInput(cmd, args[0], s.parserOptions(ir.Options{Anonymous: parseAnonymous, Text: parseText}))
	if err != nil {
		return err
	}

	return writeOutput(cmd, parseOutput, func(w io.Writer) error {
		if format != "sexp" {
			return encode(w, res.Document, format, s.cfg.Output.Pretty)
		}
		out := syntax.SExpr(res.Tree)
		if !s.cfg.Output.Fields {
			out = syntax.SExprKinds(res.Tree)
		}
		_, err := fmt.Fprintln(w, out)
		return err
	})
}
