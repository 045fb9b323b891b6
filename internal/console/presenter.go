// Terminal presentation of divergence reports and sanity warnings
package console

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"image-filter-editor/internal/core"
)

// Presenter asks the engine's questions on a terminal
type Presenter struct {
	in  *bufio.Reader
	out io.Writer
	// assumeYes answers every question with its default
	assumeYes bool
}

// New reads answers from in and writes prompts to out
func New(in io.Reader, out io.Writer, assumeYes bool) *Presenter {
	return &Presenter{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (p *Presenter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

func (p *Presenter) ResolveDivergence(report core.Report) (core.Resolution, error) {
	fmt.Fprintln(p.out, "Filters are not all the same for all images:")
	fmt.Fprintln(p.out, report.String())
	if p.assumeYes {
		return core.UseReference, nil
	}
	fmt.Fprintf(p.out, "Do: [1] %s, [2] %s, [c]ancel: ", core.UseReference, core.StartEmpty)
	answer, err := p.readLine()
	if err != nil {
		return core.UseReference, core.ErrCanceled
	}
	switch answer {
	case "", "1":
		return core.UseReference, nil
	case "2":
		return core.StartEmpty, nil
	}
	return core.UseReference, core.ErrCanceled
}

func (p *Presenter) ConfirmSanity(warning string) bool {
	fmt.Fprintln(p.out, warning)
	if p.assumeYes {
		return true
	}
	fmt.Fprint(p.out, "[y/N]: ")
	answer, err := p.readLine()
	if err != nil {
		return false
	}
	return answer == "y" || answer == "yes"
}
