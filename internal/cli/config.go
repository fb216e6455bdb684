package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roboco-io/qmdtree/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 관리",
	Long: `qmdtree 설정을 관리합니다.

설정 파일 위치: ~/.qmdtree/config.yaml (--config로 변경 가능)

하위 명령:
  show    현재 설정 표시
  init    기본 설정 파일 생성
  set     설정 값 변경
  path    설정 파일 경로 표시`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "현재 설정 표시",
	Long: `설정 파일의 내용을 표시합니다.

설정 파일이 없으면 기본값이 표시됩니다.
환경 변수 재정의는 별도로 표시됩니다.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "기본 설정 파일 생성",
	Long: `기본 설정 파일을 ~/.qmdtree/config.yaml에 생성합니다.

이미 설정 파일이 있는 경우 오류가 발생합니다.
기존 파일을 덮어쓰려면 --force 플래그를 사용하세요.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "설정 값 변경",
	Long: `설정 값을 변경합니다.

지원하는 키:
  output.format              출력 형식 (sexp, json, yaml)
  output.pretty              JSON 들여쓰기 (true, false)
  output.fields              S-표현식에 필드 이름 포함 (true, false)
  parser.front_matter        YAML 머리말 인식 (true, false)
  parser.pandoc_extensions   Pandoc 인라인 확장 (true, false)
  check.fail_on_diagnostics  진단이 있으면 check 실패 (true, false)
  check.watch                check 실행 시 항상 감시 (true, false)
  log.level                  로그 수준 (debug, info, warn, error)

예시:
  qmdtree config set output.format json
  qmdtree config set parser.pandoc_extensions false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "설정 파일 경로 표시",
	Run: func(cmd *cobra.Command, args []string) {
		loader, err := newLoader()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "오류: %v\n", err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), loader.ConfigPath())
	},
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "기존 설정 파일 덮어쓰기")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	out := cmd.OutOrStdout()
	if loader.Exists() {
		fmt.Fprintf(out, "설정 파일: %s\n\n", loader.ConfigPath())
	} else {
		fmt.Fprintf(out, "설정 파일: (기본값 사용)\n\n")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("설정 출력 실패: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "환경 변수:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	envVars := []struct {
		key  string
		desc string
	}{
		{config.EnvFormat, "출력 형식 (output.format)"},
		{config.EnvLogLevel, "로그 수준 (log.level)"},
		{config.EnvStrict, "진단 시 실패 (check.fail_on_diagnostics)"},
	}
	for _, ev := range envVars {
		status := "(미설정)"
		if v := os.Getenv(ev.key); v != "" {
			status = v
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", ev.key, ev.desc, status)
	}
	w.Flush()

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}

	if loader.Exists() && !configForce {
		return fmt.Errorf("설정 파일이 이미 존재합니다: %s\n덮어쓰려면 --force 플래그를 사용하세요", loader.ConfigPath())
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("설정 파일 생성 실패: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "설정 파일 생성됨: %s\n", loader.ConfigPath())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	loader, err := newLoader()
	if err != nil {
		return err
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("설정 로드 실패: %w", err)
	}

	if err := cfg.Set(key, value); err != nil {
		if errors.Is(err, config.ErrUnknownKey) {
			return fmt.Errorf("알 수 없는 설정 키: %s\n지원하는 키: %s", key, strings.Join(config.Keys(), ", "))
		}
		return fmt.Errorf("유효하지 않은 값: %w", err)
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("설정 저장 실패: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "설정 변경됨: %s = %s\n", key, value)
	return nil
}
