// Package cli implements the qmdtree command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roboco-io/qmdtree/internal/config"
	"github.com/roboco-io/qmdtree/internal/ir"
	"github.com/roboco-io/qmdtree/internal/parser"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "qmdtree [file]",
	Short: "Quarto/Pandoc Markdown 문서를 구문 트리로 파싱",
	Long: `qmdtree는 Quarto와 Pandoc Markdown 문서를 구문 트리로 파싱합니다.

입력의 모든 바이트는 트리의 리프 하나에 속하며,
잘못된 구문은 ERROR 노드로 격리되고 나머지 문서는 정상적으로 파싱됩니다.

예시:
  qmdtree document.qmd
  qmdtree parse document.qmd --format json
  qmdtree check chapter1.qmd chapter2.qmd --strict
  qmdtree cells analysis.qmd`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runParse(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 정보 출력",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "qmdtree %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "설정 파일 경로 (기본: ~/.qmdtree/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "디버그 로그 출력")

	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// commandContext is cmd.Context, or Background when the command was not
// started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newLoader() (*config.Loader, error) {
	if configPath != "" {
		return config.NewLoaderWithPath(configPath), nil
	}
	loader, err := config.NewLoader()
	if err != nil {
		return nil, fmt.Errorf("설정 로더 초기화 실패: %w", err)
	}
	return loader, nil
}

func loadConfig() (*config.Config, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("설정 로드 실패: %w", err)
	}
	return cfg, nil
}

// newLogger writes JSON lines to w. --verbose always means debug.
func newLogger(w io.Writer, level string) *zap.Logger {
	lvl := zapcore.WarnLevel
	if verbose {
		lvl = zapcore.DebugLevel
	} else if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = zapcore.WarnLevel
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core)
}

// session is the per-command state shared by the subcommands.
type session struct {
	cfg *config.Config
	log *zap.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: newLogger(cmd.ErrOrStderr(), cfg.Log.Level)}, nil
}

func (s *session) parserOptions(irOpts ir.Options) parser.Options {
	return parser.Options{
		FrontMatter:      s.cfg.Parser.FrontMatter,
		PandocExtensions: s.cfg.Parser.PandocExtensions,
		IR:               irOpts,
		Logger:           s.log,
	}
}

func (s *session) close() {
	_ = s.log.Sync()
}
