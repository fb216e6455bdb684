package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboco-io/qmdtree/internal/extract"
	"github.com/roboco-io/qmdtree/internal/ir"
	"github.com/roboco-io/qmdtree/internal/parser"
	"github.com/roboco-io/qmdtree/internal/watch"
)

var (
	checkStrict bool
	checkWatch  bool
	checkStats  bool
)

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "문서의 구문 오류 검사",
	Long: `문서를 파싱하고 ERROR 노드와 진단을 보고합니다.

ERROR 노드가 있는 파일이 하나라도 있으면 0이 아닌 코드로 종료합니다.
--strict를 사용하면 ERROR 노드가 없는 진단(잘못된 속성 목록 등)도 실패로 처리합니다.
--watch를 사용하면 파일이 바뀔 때마다 다시 검사합니다.

환경 변수:
  QMDTREE_STRICT=true   --strict와 동일

예시:
  qmdtree check document.qmd
  qmdtree check *.qmd --strict
  qmdtree check document.qmd --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "진단이 하나라도 있으면 실패")
	checkCmd.Flags().BoolVarP(&checkWatch, "watch", "w", false, "파일 변경 시 다시 검사")
	checkCmd.Flags().BoolVar(&checkStats, "stats", false, "노드 종류별 개수 출력")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	strict := checkStrict || s.cfg.Check.FailOnDiagnostics
	opts := s.parserOptions(ir.Options{})
	if checkWatch || s.cfg.Check.Watch {
		return watchFiles(cmd, s, args, opts, strict)
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		res, err := parseInput(cmd, path, opts)
		if err != nil {
			return err
		}
		if !report(out, res, strict) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d개 파일에서 문제가 발견되었습니다", failed)
	}
	return nil
}

// report prints the summary line and diagnostics of res, and whether it
// passes.
func report(w io.Writer, res *parser.Result, strict bool) bool {
	d := extract.Diagnostics(res.Tree)
	ok := d.Errors == 0 && (!strict || len(d.Diagnostics) == 0)

	mark := "✓"
	if !ok {
		mark = "✗"
	}
	meta := res.Document.Metadata
	fmt.Fprintf(w, "%s %s (%s, %s줄, 노드 %s개, 오류 %d개, %s)\n",
		mark, res.Path,
		humanize.Bytes(uint64(meta.Bytes)),
		humanize.Comma(int64(meta.Lines)),
		humanize.Comma(int64(meta.Nodes)),
		d.Errors,
		res.Elapsed.Round(time.Microsecond),
	)
	for _, e := range d.Diagnostics {
		fmt.Fprintf(w, "  %s:%d: %s: %s", res.Path, e.Line, e.Kind, e.Message)
		if e.Excerpt != "" {
			fmt.Fprintf(w, " %q", e.Excerpt)
		}
		fmt.Fprintln(w)
	}

	if checkStats {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, kc := range res.Document.Histogram() {
			fmt.Fprintf(tw, "  %s\t%s\n", kc.Kind, humanize.Comma(int64(kc.Count)))
		}
		tw.Flush()
	}
	return ok
}

func watchFiles(cmd *cobra.Command, s *session, paths []string, opts parser.Options, strict bool) error {
	for _, p := range paths {
		if p == "-" {
			return fmt.Errorf("표준 입력은 감시할 수 없습니다")
		}
	}

	w, err := watch.New(paths, watch.Options{Parser: opts, Logger: s.log})
	if err != nil {
		return fmt.Errorf("파일 감시 실패: %w", err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "감시 중: %d개 파일 (종료: Ctrl+C)\n", len(w.Files()))
	err = w.Run(ctx, func(ev watch.Event) {
		if ev.Err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", ev.Path, ev.Err)
			return
		}
		report(out, ev.Result, strict)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
