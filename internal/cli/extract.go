package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roboco-io/qmdtree/internal/extract"
	"github.com/roboco-io/qmdtree/internal/ir"
)

var (
	extractOutput string
	extractFormat string
)

var extractCmd = &cobra.Command{
	Use:   "extract <extractor> <file>",
	Short: "문서에서 구조화된 데이터 추출",
	Long: `등록된 추출기로 문서에서 구조화된 데이터를 추출합니다.

출력 형식은 json 또는 yaml입니다. 설정의 output.format이 sexp이면 json을 사용합니다.
사용 가능한 추출기는 'qmdtree extractors'로 확인할 수 있습니다.

예시:
  qmdtree extract cells analysis.qmd
  qmdtree extract outline report.qmd --format yaml
  qmdtree extract diagnostics draft.qmd -o diagnostics.json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtractor(cmd, args[0], args[1])
	},
}

var cellsCmd = &cobra.Command{
	Use:   "cells <file>",
	Short: "실행 코드 셀과 청크 옵션 추출",
	Long: `실행 코드 셀(블록과 인라인)을 문서 순서대로 추출합니다.

#| 청크 옵션은 YAML 값으로 해석되며, 같은 키가 반복되면 마지막 값이 적용됩니다.

예시:
  qmdtree cells analysis.qmd
  qmdtree cells analysis.qmd --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtractor(cmd, "cells", args[0])
	},
}

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "제목 구조와 상호 참조 추출",
	Long: `문서의 제목, 헤딩 구조, 상호 참조 대상과 사용처를 추출합니다.

대상이 선언되지 않은 상호 참조(@fig-x 등)는 unresolved에 표시됩니다.

예시:
  qmdtree outline report.qmd
  qmdtree outline report.qmd --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtractor(cmd, "outline", args[0])
	},
}

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "사용 가능한 추출기 목록",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "이름\t설명")
		fmt.Fprintln(w, "----\t----")
		for _, name := range extract.List() {
			e, err := extract.Get(name)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", e.Name(), e.Description())
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{extractCmd, cellsCmd, outlineCmd} {
		c.Flags().StringVarP(&extractFormat, "format", "f", "", "출력 형식 (json, yaml)")
		c.Flags().StringVarP(&extractOutput, "output", "o", "", "출력 파일 경로 (기본: stdout)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(extractorsCmd)
}

func runExtractor(cmd *cobra.Command, name, path string) error {
	e, err := extract.Get(name)
	if err != nil {
		return fmt.Errorf("알 수 없는 추출기: %s (사용 가능: qmdtree extractors)", name)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	format := extractFormat
	if format == "" {
		format = s.cfg.Output.Format
		if format == "sexp" {
			format = "json"
		}
	}
	if format != "json" && format != "yaml" {
		return fmt.Errorf("지원하지 않는 출력 형식: %s (지원: json, yaml)", format)
	}

	res, err := parseInput(cmd, path, s.parserOptions(ir.Options{}))
	if err != nil {
		return err
	}
	v, err := e.Extract(commandContext(cmd), res.Tree)
	if err != nil {
		return fmt.Errorf("추출 실패: %w", err)
	}

	return writeOutput(cmd, extractOutput, func(w io.Writer) error {
		return encode(w, v, format, s.cfg.Output.Pretty)
	})
}
