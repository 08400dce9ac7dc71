// Package powershell executes PowerShell commands with optional elevation.
//
// Windows offers no way to elevate an already-running process, so elevated
// commands are routed through Start-Process -Verb RunAs with stdout, stderr
// and the exit code captured in private temporary files and read back after
// the elevated process exits. Unelevated commands run directly with a
// hidden console window.
package powershell

import (
	"bytes"
	stderrors "errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"touchctl/pkg/classify"
	"touchctl/pkg/errors"
	"touchctl/pkg/logging"
)

// Result holds the outcome of one external invocation.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Combined returns stdout and stderr joined for classification.
func (r Result) Combined() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Options controls how a command is executed.
type Options struct {
	// Elevate routes the command through the elevation mechanism.
	Elevate bool
	// AutoElevate retries the command elevated (after consent) when the
	// output is classified as access-denied.
	AutoElevate bool
	// Propagate returns the command's own exit code rather than the
	// shell's. Some commands set exit codes inconsistently, so both
	// behaviors are needed.
	Propagate bool
	// Strict raises any classified condition found in the output instead
	// of returning it in the result for the caller to interpret.
	Strict bool
}

// DefaultOptions returns the options most callers want: unelevated,
// consent-gated auto elevation, command exit codes.
func DefaultOptions() Options {
	return Options{AutoElevate: true, Propagate: true}
}

// Consent approves or declines an elevation request on behalf of the user.
type Consent interface {
	ConfirmElevate() bool
}

// ConsentFunc adapts a plain function to the Consent interface.
type ConsentFunc func() bool

// ConfirmElevate implements Consent.
func (f ConsentFunc) ConfirmElevate() bool { return f() }

// Runner executes PowerShell commands.
type Runner interface {
	Run(cmd string, opts Options) (Result, error)
}

// execFunc spawns a process and returns its exit code and captured output.
// It is a seam for tests; the default implementation is systemExec.
type execFunc func(name string, args ...string) (int, string, string, error)

// Shell is the production Runner.
type Shell struct {
	consent Consent
	logger  zerolog.Logger
	exec    execFunc
}

// New creates a Shell using the given consent collaborator for elevation
// prompts.
func New(consent Consent) *Shell {
	return &Shell{
		consent: consent,
		logger:  logging.GetLogger("powershell"),
		exec:    systemExec,
	}
}

// SafePath escapes single quotes so a path can be embedded in a PowerShell
// single-quote literal.
func SafePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

// Run executes cmd synchronously and returns its exit code, stdout and
// stderr. The combined output is always scanned for an access-denied
// pattern; with AutoElevate set the consent collaborator is asked once and
// the command re-run elevated. A declined prompt fails with USER_ABORTED.
func (s *Shell) Run(cmd string, opts Options) (Result, error) {
	var res Result
	var err error

	if opts.Elevate {
		res, err = s.runElevated(cmd, opts.Propagate)
	} else {
		res, err = s.runDirect(cmd, opts.Propagate)
	}
	if err != nil {
		return res, err
	}

	s.logger.Debug().
		Str("command", cmd).
		Bool("elevated", opts.Elevate).
		Int("code", res.Code).
		Msg("Command finished")

	if denied := classify.Command.Check(res.Combined(), res.Code, errors.ErrAccessDenied); denied != nil {
		if opts.AutoElevate && !opts.Elevate {
			if s.consent.ConfirmElevate() {
				retry := opts
				retry.Elevate = true
				retry.AutoElevate = false
				return s.Run(cmd, retry)
			}
			return res, errors.Wrap(denied, errors.ErrUserAborted, "elevation cancelled by user")
		}
		if opts.Strict {
			return res, denied
		}
		return res, nil
	}

	if opts.Strict {
		if cerr := classify.Command.Check(res.Combined(), res.Code); cerr != nil {
			return res, cerr
		}
	}

	return res, nil
}

// Probe reports whether the PowerShell execution facility itself is
// usable. Some managed environments disable it by group policy for
// non-admins.
func (s *Shell) Probe() bool {
	res, err := s.runDirect("echo hello", true)
	if err != nil {
		return false
	}
	return classify.Command.Check(res.Combined(), res.Code, errors.ErrPowershellDisabled) == nil
}

// runDirect executes the command in a hidden, unelevated PowerShell.
func (s *Shell) runDirect(cmd string, propagate bool) (Result, error) {
	// An empty -Command argument is rejected outright; a newline is the
	// accepted stand-in.
	body := cmd
	if body == "" {
		body = "`n"
	}
	if !propagate {
		// Nest the command one shell deeper so the outer shell's exit code
		// is what comes back.
		inner := "\"`n\""
		if cmd != "" {
			inner = "'" + SafePath(cmd) + "'"
		}
		body = "powershell -NoProfile -Command " + inner
	}

	code, stdout, stderr, err := s.exec("powershell", "-NoProfile", "-Command", body)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to start powershell")
	}
	return Result{Code: code, Stdout: stdout, Stderr: stderr}, nil
}

// runElevated executes the command through Start-Process -Verb RunAs,
// exchanging output through temporary files. All temporary artifacts are
// removed on every exit path; removal failures are logged, not escalated.
func (s *Shell) runElevated(cmd string, propagate bool) (Result, error) {
	files, err := newCaptureFiles(cmd)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to stage elevation files")
	}
	defer files.cleanup(s.logger)

	wrapper := elevatedWrapper(files, propagate)

	code, stdout, stderr, err := s.exec("powershell", "-NoProfile", "-Command", wrapper)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to start powershell")
	}

	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	if stdout != "" || stderr != "" {
		// The wrapper itself produces no output, so anything here is an
		// error from the elevation machinery (most likely a cancelled UAC
		// prompt).
		if cerr := classify.Command.Check(stdout+"\n"+stderr, code); cerr != nil {
			return Result{}, cerr
		}
		return Result{}, errors.Newf(errors.ErrInternal,
			"unexpected elevation output, stdout: %q stderr: %q", stdout, stderr)
	}

	return files.read()
}

// ElevateRetry implements the permission-retry flow shared by the registry
// accessor and the device model: run fn honoring the caller's elevate
// flag; when it fails with the permission code and auto elevation is
// allowed, ask consent once and retry elevated. Declining fails with the
// abort code. The retry depth is bounded to one by construction.
func ElevateRetry(consent Consent, elevate, auto bool, perm, abort errors.ErrorCode, fn func(elevate bool) error) error {
	err := fn(elevate)
	if err == nil || elevate || !auto || !errors.IsErrorCode(err, perm) {
		return err
	}
	if !consent.ConfirmElevate() {
		return errors.Wrap(err, abort, "elevation cancelled by user")
	}
	return fn(true)
}

// captureFiles are the private temporary files used to exchange data with
// an elevated process: the script to run and its captured stdout, stderr
// and exit code.
type captureFiles struct {
	script  string
	stdout  string
	stderr  string
	retcode string
}

func newCaptureFiles(cmd string) (*captureFiles, error) {
	f := &captureFiles{
		script:  tempFileName(".ps1"),
		stdout:  tempFileName(".out"),
		stderr:  tempFileName(".err"),
		retcode: tempFileName(".rc"),
	}

	// PowerShell 5.1 defaults Get-Content/Set-Content to ANSI; the script
	// is written UTF-16 LE without BOM so the wrapper reads it faithfully.
	if err := os.WriteFile(f.script, encodeUTF16LE(cmd), 0600); err != nil {
		return nil, err
	}
	for _, p := range []string{f.stdout, f.stderr, f.retcode} {
		if err := os.WriteFile(p, nil, 0600); err != nil {
			f.cleanup(zerolog.Nop())
			return nil, err
		}
	}
	return f, nil
}

func (f *captureFiles) all() []string {
	return []string{f.script, f.stdout, f.stderr, f.retcode}
}

// cleanup removes the exchange files, best effort.
func (f *captureFiles) cleanup(logger zerolog.Logger) {
	for _, p := range f.all() {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("file", p).Msg("Failed to clean up elevation file")
		}
	}
}

// read loads the captured output back after the elevated process exited.
func (f *captureFiles) read() (Result, error) {
	stdout, err := os.ReadFile(f.stdout)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to read captured stdout")
	}
	stderr, err := os.ReadFile(f.stderr)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to read captured stderr")
	}
	rcRaw, err := os.ReadFile(f.retcode)
	if err != nil {
		return Result{}, errors.Wrap(err, errors.ErrInternal, "failed to read captured exit code")
	}

	code, err := strconv.Atoi(strings.TrimSpace(string(rcRaw)))
	if err != nil {
		return Result{}, errors.Newf(errors.ErrInternal,
			"elevated command returned non-integer exit code %q", strings.TrimSpace(string(rcRaw)))
	}

	// No TrimSpace on stdout/stderr: trailing newlines may be part of the
	// actual output.
	return Result{Code: code, Stdout: string(stdout), Stderr: string(stderr)}, nil
}

// systemExec spawns the process with a hidden console window and captures
// its output. A non-zero exit is a result, not an error.
func systemExec(name string, args ...string) (int, string, string, error) {
	cmd := exec.Command(name, args...)
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return 0, "", "", err
		}
		return exitErr.ExitCode(), stdout.String(), stderr.String(), nil
	}
	return 0, stdout.String(), stderr.String(), nil
}
