package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"scl90-gate/internal/clientcache"
	"scl90-gate/internal/scoring"
	"scl90-gate/internal/shared/logger"

	"github.com/joho/godotenv"
)

const usage = `usage: scl90 <command> [flags]

commands:
  authorize -code CODE   unlock the questionnaire on this machine
  status                 show the cached access window
  forget                 drop the cached access code
  score [-code CODE] [-file PATH] [-json] [answers...]
                         score 90 answers (1-5); requires access
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type cli struct {
	gate   *clientcache.Gate
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := clientcache.LoadConfig()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	level := os.Getenv("SCL90_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	appLogger := logger.NewLoggerWithWriter(stderr, level).WithComponent("client")

	c := &cli{
		gate: clientcache.NewGate(
			clientcache.NewFileStore(cfg.StateFile),
			clientcache.NewHTTPValidator(cfg.ValidateURL(), cfg.Timeout),
			cfg.SessionTTL,
			clientcache.WithLogger(appLogger),
		),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}

	switch args[0] {
	case "authorize":
		return c.authorize(ctx, args[1:])
	case "status":
		return c.status(ctx)
	case "forget":
		if err := c.gate.Forget(); err != nil {
			appLogger.Errorf("forget failed: %v", err)
			return 1
		}
		fmt.Fprintln(stdout, "已清除本机访问码。")
		return 0
	case "score":
		return c.score(ctx, args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func (c *cli) authorize(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("authorize", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	code := fs.String("code", "", "access code")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	auth, ok := c.unlock(ctx, *code)
	if !ok {
		return 1
	}
	c.printWindow(auth)
	return 0
}

func (c *cli) status(ctx context.Context) int {
	auth, err := c.gate.Authorize(ctx, "")
	if errors.Is(err, clientcache.ErrCodeRequired) {
		fmt.Fprintln(c.stdout, "未授权：请使用 authorize -code 输入访问码。")
		return 1
	}
	if err != nil {
		fmt.Fprintln(c.stderr, userMessage(err))
		return 1
	}
	c.printWindow(auth)
	return 0
}

func (c *cli) score(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	code := fs.String("code", "", "access code, when not yet authorized")
	file := fs.String("file", "", "answers file, '-' for stdin")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if _, ok := c.unlock(ctx, *code); !ok {
		return 1
	}

	answers, err := c.readAnswers(*file, fs.Args())
	if err == nil {
		err = scoring.Validate(answers)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "无效的答卷：%v\n", err)
		return 1
	}

	result := scoring.Score(answers)
	interp, err := scoring.Interpret(result)
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to interpret result: %v\n", err)
		return 1
	}

	if *asJSON {
		err = writeJSON(c.stdout, result, interp)
	} else {
		err = writeReport(c.stdout, result, interp)
	}
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return 1
	}
	return 0
}

func (c *cli) unlock(ctx context.Context, code string) (*clientcache.Authorization, bool) {
	auth, err := c.gate.Authorize(ctx, code)
	if errors.Is(err, clientcache.ErrCodeRequired) {
		fmt.Fprintln(c.stderr, "请输入访问码 (-code)。")
		return nil, false
	}
	if err != nil {
		fmt.Fprintln(c.stderr, userMessage(err))
		return nil, false
	}
	return auth, true
}

func (c *cli) readAnswers(file string, args []string) ([]int, error) {
	switch {
	case file == "-":
		return scoring.ParseAnswers(c.stdin)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return scoring.ParseAnswers(f)
	default:
		return scoring.ParseAnswers(strings.NewReader(strings.Join(args, " ")))
	}
}

func (c *cli) printWindow(auth *clientcache.Authorization) {
	source := "服务器验证"
	if auth.Cached {
		source = "本机缓存"
	}
	fmt.Fprintf(c.stdout, "已授权 (%s)，访问码 %s\n", source, auth.AccessCode)
	fmt.Fprintf(c.stdout, "首次访问：%s\n", auth.FirstAccessAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.stdout, "剩余时间：%s\n", formatRemaining(auth.Remaining(c.now())))
}

// userMessage maps gate errors to what the reader is shown
func userMessage(err error) string {
	var denied *clientcache.DeniedError
	switch {
	case errors.As(err, &denied):
		return denied.Message
	case errors.Is(err, clientcache.ErrRejected):
		return clientcache.MessageRejected
	default:
		return clientcache.MessageUnavailable
	}
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
