package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:  os.Stdin,
		Out: os.Stderr,
		IsInteractive: func() bool {
			info, err := os.Stdin.Stat()
			if err != nil {
				return false
			}
			return (info.Mode() & os.ModeCharDevice) != 0
		},
	}
}

// ConfirmRun asks whether to start the translation described by summary.
// assumeYes skips the question; a non-interactive stdin without assumeYes
// is an error.
func (c Confirmer) ConfirmRun(summary string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if c.IsInteractive == nil || !c.IsInteractive() {
		return false, fmt.Errorf("non-interactive stdin: use -y to start the translation")
	}
	if c.Out != nil {
		if summary != "" {
			fmt.Fprintln(c.Out, summary)
		}
		fmt.Fprint(c.Out, "Proceed with translation? (y/n): ")
	}
	reader := bufio.NewReader(c.In)
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
