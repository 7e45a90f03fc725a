package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

var ErrNoOpener = errors.New("no opener command for this platform")

// ExecLauncher opens identifiers with the desktop's URI handler and falls
// back to a browser command.
type ExecLauncher struct {
	Opener  []string
	Browser []string
	log     *zap.Logger
}

func NewExecLauncher() *ExecLauncher {
	l := &ExecLauncher{log: zap.NewNop()}
	switch runtime.GOOS {
	case "darwin":
		l.Opener = []string{"open"}
		l.Browser = []string{"open", "-n", "-a", "Safari"}
	case "windows":
		l.Opener = []string{"rundll32", "url.dll,FileProtocolHandler"}
		l.Browser = []string{"cmd", "/c", "start", ""}
	default:
		l.Opener = []string{"xdg-open"}
		l.Browser = []string{"x-www-browser", "--new-window"}
	}
	return l
}

func (l *ExecLauncher) SetLogger(log *zap.Logger) {
	l.log = log
}

func (l *ExecLauncher) Open(ctx context.Context, uri string) error {
	return l.run(ctx, l.Opener, uri)
}

func (l *ExecLauncher) OpenFallback(ctx context.Context, uri string) error {
	return l.run(ctx, l.Browser, uri)
}

func (l *ExecLauncher) run(ctx context.Context, command []string, uri string) error {
	if len(command) == 0 {
		return ErrNoOpener
	}
	args := append(append([]string(nil), command[1:]...), uri)
	l.log.Debug("exec open", zap.String("cmd", command[0]), zap.Strings("args", args))
	out, err := exec.CommandContext(ctx, command[0], args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", command[0], uri, err, strings.TrimSpace(string(out)))
	}
	return nil
}
