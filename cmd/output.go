package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aelpxy/searxops/internal/docker"
	"github.com/aelpxy/searxops/internal/stack"
	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"
)

// cliReporter renders operator progress in the same "==>" / "-->" layout as
// the rest of the command output.
type cliReporter struct {
	out     io.Writer
	tty     bool
	spinner *pb.ProgressBar
}

func newReporter() *cliReporter {
	return &cliReporter{
		out: os.Stdout,
		tty: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (r *cliReporter) Step(msg string) {
	r.finishSpinner()
	fmt.Fprintln(r.out, progressStyle.Render("==> "+msg))
}

func (r *cliReporter) Detail(msg string) {
	fmt.Fprintln(r.out, dimStyle.Render("  --> "+msg))
}

func (r *cliReporter) Warn(msg string) {
	fmt.Fprintf(r.out, "  %s %s\n", warnStyle.Render("[!]"), msg)
}

func (r *cliReporter) Waiting(attempt, total int) {
	if !r.tty {
		fmt.Fprintln(r.out, dimStyle.Render(fmt.Sprintf("  --> readiness check %d/%d", attempt, total)))
		return
	}
	if r.spinner == nil {
		tmpl := `{{ "  waiting" }} {{ cycle . "⠋" "⠙" "⠹" "⠸" "⠼" "⠴" "⠦" "⠧" "⠇" "⠏" }} {{ counters . }}`
		r.spinner = pb.New(total)
		r.spinner.SetTemplateString(tmpl)
		r.spinner.SetRefreshRate(100 * time.Millisecond)
		r.spinner.SetWriter(r.out)
		r.spinner.Start()
	}
	r.spinner.SetCurrent(int64(attempt))
}

func (r *cliReporter) finishSpinner() {
	if r.spinner != nil {
		r.spinner.Finish()
		r.spinner = nil
	}
}

func (r *cliReporter) Close() {
	r.finishSpinner()
}

// newConfirmer prompts on a terminal. Without a terminal it declines unless
// assumeYes is set.
func newConfirmer(assumeYes bool) stack.Confirmer {
	return stack.ConfirmFunc(func(prompt string) (bool, error) {
		if assumeYes {
			return true, nil
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Println(dimStyle.Render("  stdin is not a terminal, pass --yes to confirm"))
			return false, nil
		}

		fmt.Printf("  %s (y/N): ", prompt)
		answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		answer = strings.TrimSpace(strings.ToLower(answer))
		return answer == "y" || answer == "yes", nil
	})
}

// newStack wires the docker client and compose CLI into an operator. The
// caller closes the returned client.
func newStack(reporter stack.Reporter, opts ...stack.Option) (*stack.Operator, *docker.Client, error) {
	client, err := docker.NewClient(cfg.HelperImage)
	if err != nil {
		return nil, nil, err
	}

	compose := docker.NewCompose(cfg.ComposePath())
	opts = append([]stack.Option{
		stack.WithReporter(reporter),
		stack.WithVersion(version),
	}, opts...)

	return stack.NewOperator(cfg, client, compose, opts...), client, nil
}

func printSummaryRow(label, value string) {
	fmt.Printf("    %s %s\n", dimStyle.Render(label), valueStyle.Render(value))
}
